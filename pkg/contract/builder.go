package contract

import (
	"github.com/pact-foundation/pact-go/dsl"
)

// Builder collects the interactions a consumer expects from one provider.
type Builder struct {
	consumer        string
	provider        string
	specVersion     SpecVersion
	defaultRequest  *RequestDefaults
	defaultResponse *ResponseDefaults
	interactions    []*Interaction
}

func NewBuilder(consumer string) *Builder {
	return &Builder{
		consumer:    consumer,
		specVersion: DefaultSpecVersion,
	}
}

func (b *Builder) WithProvider(provider string) *Builder {
	b.provider = provider
	return b
}

func (b *Builder) WithSpecVersion(version SpecVersion) *Builder {
	b.specVersion = version.OrDefault()
	return b
}

func (b *Builder) Consumer() string {
	return b.consumer
}

func (b *Builder) Provider() string {
	return b.provider
}

func (b *Builder) SpecVersion() SpecVersion {
	return b.specVersion
}

// NewRequestDefaults returns an empty request template for this builder.
// It has no effect until passed to SetDefaultRequestValues.
func (b *Builder) NewRequestDefaults() *RequestDefaults {
	return &RequestDefaults{}
}

// NewResponseDefaults returns an empty response template for this builder.
// It has no effect until passed to SetDefaultResponseValues.
func (b *Builder) NewResponseDefaults() *ResponseDefaults {
	return &ResponseDefaults{}
}

func (b *Builder) SetDefaultRequestValues(defaults *RequestDefaults) {
	b.defaultRequest = defaults
}

func (b *Builder) SetDefaultResponseValues(defaults *ResponseDefaults) {
	b.defaultResponse = defaults
}

func (b *Builder) Given(state string) *InteractionBuilder {
	return b.newInteraction().Given(state)
}

func (b *Builder) UponReceiving(description string) *InteractionBuilder {
	return b.newInteraction().UponReceiving(description)
}

// ToPact returns the contract built so far. Later changes to the builder are
// not reflected in the returned pact.
func (b *Builder) ToPact() *Pact {
	return &Pact{
		consumer:     b.consumer,
		provider:     b.provider,
		specVersion:  b.specVersion,
		interactions: append([]*Interaction(nil), b.interactions...),
	}
}

func (b *Builder) newInteraction() *InteractionBuilder {
	return &InteractionBuilder{
		builder:     b,
		interaction: &Interaction{},
	}
}

// InteractionBuilder defines one interaction. The interaction is added to the
// builder once WillRespondWith is called.
type InteractionBuilder struct {
	builder     *Builder
	interaction *Interaction
	hasRequest  bool
}

func (i *InteractionBuilder) Given(state string) *InteractionBuilder {
	i.interaction.ProviderState = state
	return i
}

func (i *InteractionBuilder) UponReceiving(description string) *InteractionBuilder {
	i.interaction.Description = description
	return i
}

func (i *InteractionBuilder) Comment(key string, value interface{}) *InteractionBuilder {
	i.interaction.Annotate(key, value)
	return i
}

func (i *InteractionBuilder) WithRequest(request dsl.Request) *InteractionBuilder {
	i.interaction.Request = i.builder.defaultRequest.apply(request)
	i.hasRequest = true
	return i
}

func (i *InteractionBuilder) WillRespondWith(response dsl.Response) *Builder {
	if !i.hasRequest {
		i.WithRequest(dsl.Request{})
	}
	i.interaction.Response = i.builder.defaultResponse.apply(response)
	i.builder.interactions = append(i.builder.interactions, i.interaction)
	return i.builder
}
