// Package servicebus implements the bus.Adapter contract against Azure
// Service Bus using github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus.
package servicebus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"github.com/ovation22/triplederby-workers/internal/bus"
)

// Config configures the Service Bus topology the adapter binds to.
type Config struct {
	// ConnectionString, if set, is used to construct the client. Otherwise
	// Namespace is dialed via the default Azure credential chain.
	ConnectionString string
	Namespace        string // e.g. "myns.servicebus.windows.net", used when ConnectionString is empty

	Queue        string // queue name; mutually exclusive with Topic/Subscription
	Topic        string
	Subscription string

	MaxConcurrentHandlers int
}

// Adapter is a bus.Adapter backed by a single azservicebus.Client.
type Adapter struct {
	cfg Config

	mu       sync.Mutex // serializes complete/abandon/dead-letter calls per receiver
	client   *azservicebus.Client
	sender   *azservicebus.Sender
	receiver *azservicebus.Receiver

	defaultDestination string
}

// New constructs an Adapter. Connect must be called before Publish/SubscribeRaw.
func New(cfg Config) *Adapter {
	destination := cfg.Queue
	if destination == "" {
		destination = cfg.Topic
	}
	return &Adapter{cfg: cfg, defaultDestination: destination}
}

// Connect builds the Service Bus client, sender, and receiver. Idempotent.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return nil
	}

	client, err := a.newClient()
	if err != nil {
		return fmt.Errorf("servicebus client: %w", err)
	}

	senderName := a.cfg.Queue
	if senderName == "" {
		senderName = a.cfg.Topic
	}
	sender, err := client.NewSender(senderName, nil)
	if err != nil {
		return fmt.Errorf("servicebus sender for %s: %w", senderName, err)
	}

	var receiver *azservicebus.Receiver
	if a.cfg.Queue != "" {
		receiver, err = client.NewReceiverForQueue(a.cfg.Queue, nil)
	} else {
		receiver, err = client.NewReceiverForSubscription(a.cfg.Topic, a.cfg.Subscription, nil)
	}
	if err != nil {
		return fmt.Errorf("servicebus receiver: %w", err)
	}

	a.client = client
	a.sender = sender
	a.receiver = receiver
	return nil
}

func (a *Adapter) newClient() (*azservicebus.Client, error) {
	if a.cfg.ConnectionString != "" {
		return azservicebus.NewClientFromConnectionString(a.cfg.ConnectionString, nil)
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("default azure credential: %w", err)
	}
	return azservicebus.NewClient(a.cfg.Namespace, cred, nil)
}

// Publish serializes value to JSON and sends it as a Service Bus message,
// tagging it with opts.Subject and opts.Metadata as application properties.
// The message always goes to the queue or topic whose sender was opened at
// Connect; opts.Destination is not used.
func (a *Adapter) Publish(ctx context.Context, value any, opts bus.PublishOptions) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	props := map[string]any{"MessageType": resolveMessageType(opts)}
	for k, v := range opts.Metadata {
		props[k] = v
	}

	subject := opts.Subject
	correlationID := correlationIDOf(value)

	msg := &azservicebus.Message{
		Body:                   body,
		Subject:                &subject,
		ApplicationProperties:  props,
		ContentType:            strPtr("application/json"),
		CorrelationID:          strPtr(correlationID),
	}

	a.mu.Lock()
	sender := a.sender
	a.mu.Unlock()
	if sender == nil {
		return fmt.Errorf("servicebus adapter not connected")
	}

	return sender.SendMessage(ctx, msg, nil)
}

// SubscribeRaw loops receiving batches of messages and dispatches each to
// handler on its own goroutine, bounded by concurrency.
func (a *Adapter) SubscribeRaw(ctx context.Context, destination string, concurrency int, handler bus.RawHandler) error {
	a.mu.Lock()
	receiver := a.receiver
	a.mu.Unlock()
	if receiver == nil {
		return fmt.Errorf("servicebus adapter not connected")
	}

	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	go func() {
		for {
			messages, err := receiver.ReceiveMessages(ctx, concurrency, nil)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			for _, msg := range messages {
				sem <- struct{}{}
				go func(m *azservicebus.ReceivedMessage) {
					defer func() { <-sem }()
					a.handleMessage(ctx, receiver, m, handler)
				}(msg)
			}
		}
	}()

	return nil
}

func (a *Adapter) handleMessage(ctx context.Context, receiver *azservicebus.Receiver, msg *azservicebus.ReceivedMessage, handler bus.RawHandler) {
	mctx := bus.MessageContext{
		MessageID:     msg.MessageID,
		CorrelationID: derefStr(msg.CorrelationID),
		DeliveryTag:   uint64(msg.DeliveryCount),
		Metadata:      stringifyProperties(msg.ApplicationProperties),
		Attempt:       int(msg.DeliveryCount),
	}

	result := a.safeHandle(ctx, msg.Body, mctx, handler)

	a.mu.Lock()
	defer a.mu.Unlock()
	if result.Success {
		_ = receiver.CompleteMessage(ctx, msg, nil)
		return
	}
	if result.Requeue {
		_ = receiver.AbandonMessage(ctx, msg, nil)
		return
	}
	// Dead-letter sub-queue is native to Service Bus (§9); the core never reads it.
	_ = receiver.DeadLetterMessage(ctx, msg, nil)
}

func (a *Adapter) safeHandle(ctx context.Context, body []byte, mctx bus.MessageContext, handler bus.RawHandler) (result bus.ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			result = bus.NackDiscard(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return handler(ctx, body, mctx)
}

// Disconnect closes the receiver, sender, and client. Safe to call without a prior Connect.
func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	if a.receiver != nil {
		if err := a.receiver.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		a.receiver = nil
	}
	if a.sender != nil {
		if err := a.sender.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		a.sender = nil
	}
	if a.client != nil {
		if err := a.client.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		a.client = nil
	}
	return firstErr
}

// resolveMessageType returns the envelope's MessageType application property,
// preferring the actual type name carried on opts.MessageType over
// opts.Subject: §4.2 lets a Route override Subject to an unrelated routing
// key, but MessageType must still name the message's type regardless.
func resolveMessageType(opts bus.PublishOptions) string {
	if opts.MessageType != "" {
		return opts.MessageType
	}
	return opts.Subject
}

func strPtr(s string) *string { return &s }

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func stringifyProperties(props map[string]any) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func correlationIDOf(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	var probe struct {
		RequestId string `json:"requestId"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.RequestId
}
