package contract

import (
	"github.com/pact-foundation/pact-go/dsl"
)

// Interaction is a single expected request/response pair of a contract.
type Interaction struct {
	Description   string                 `json:"description"`
	ProviderState string                 `json:"providerState,omitempty"`
	Request       dsl.Request            `json:"request"`
	Response      dsl.Response           `json:"response"`
	Comments      map[string]interface{} `json:"comments,omitempty"`
}

// Annotate attaches a free-form comment to the interaction, replacing any
// previous value stored under the same key.
func (i *Interaction) Annotate(key string, value interface{}) {
	if i.Comments == nil {
		i.Comments = make(map[string]interface{})
	}
	i.Comments[key] = value
}

// Key identifies an interaction inside a pact file.
func (i *Interaction) Key() string {
	return interactionKey(i.Description, i.ProviderState)
}

func interactionKey(description, state string) string {
	return description + "\x00" + state
}
