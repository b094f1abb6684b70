package core

import "context"

// Automation is the collaborator behind an Automated task. It receives a
// copy of the instance data and returns the key/value updates to merge back.
type Automation interface {
	Run(ctx context.Context, data map[string]any) (map[string]any, error)
}

// AutomationFunc adapts a plain function to the Automation interface.
type AutomationFunc func(ctx context.Context, data map[string]any) (map[string]any, error)

func (f AutomationFunc) Run(ctx context.Context, data map[string]any) (map[string]any, error) {
	return f(ctx, data)
}

// Integration is the collaborator behind a SystemIntegration task. Calls are
// made with a bounded timeout on the context.
type Integration interface {
	Invoke(ctx context.Context, data map[string]any) (map[string]any, error)
}

type IntegrationFunc func(ctx context.Context, data map[string]any) (map[string]any, error)

func (f IntegrationFunc) Invoke(ctx context.Context, data map[string]any) (map[string]any, error) {
	return f(ctx, data)
}

// Scorer produces the advisory result of a Decision task. The result is
// written into the instance data; it never alters control flow.
type Scorer interface {
	Score(ctx context.Context, data map[string]any) (any, error)
}

type ScorerFunc func(ctx context.Context, data map[string]any) (any, error)

func (f ScorerFunc) Score(ctx context.Context, data map[string]any) (any, error) {
	return f(ctx, data)
}

// Sender delivers the message of a Notification task to a recipient taken
// from the instance data.
type Sender interface {
	Send(ctx context.Context, recipient string, data map[string]any) error
}

type SenderFunc func(ctx context.Context, recipient string, data map[string]any) error

func (f SenderFunc) Send(ctx context.Context, recipient string, data map[string]any) error {
	return f(ctx, recipient, data)
}

// Capabilities binds handler names to collaborator implementations. One set
// is supplied when a workflow definition is registered; task descriptors
// refer to entries by handler name (the task id when no handler is set).
type Capabilities struct {
	Automations  map[string]Automation
	Integrations map[string]Integration
	Scorers      map[string]Scorer
	Senders      map[string]Sender
}

func (c Capabilities) Automation(name string) (Automation, bool) {
	a, ok := c.Automations[name]
	return a, ok
}

func (c Capabilities) Integration(name string) (Integration, bool) {
	i, ok := c.Integrations[name]
	return i, ok
}

func (c Capabilities) Scorer(name string) (Scorer, bool) {
	s, ok := c.Scorers[name]
	return s, ok
}

func (c Capabilities) Sender(name string) (Sender, bool) {
	s, ok := c.Senders[name]
	return s, ok
}
