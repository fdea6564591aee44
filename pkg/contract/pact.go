// Package contract builds pact documents and writes them as pact files.
//
// Interactions are serialized with the pact-go v1 matcher encoding
// (json_class Pact::SomethingLike, Pact::ArrayLike and Pact::Term) for every
// specification version. Version 3 and later files list provider states under
// providerStates; V3 matchingRules and V4 interaction types are not written.
package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// DefaultPactDir is where pact files are written when no directory is configured.
const DefaultPactDir = "pacts"

const clientName = "pact-consumer"

// Document is the capability every contract fixture must return.
type Document interface {
	Consumer() string
	Provider() string
	SpecVersion() SpecVersion
	// Interactions returns the interactions in the order they were defined.
	Interactions() []*Interaction
	// MergeInteractions appends interactions, keeping duplicates.
	MergeInteractions(interactions []*Interaction)
	// WriteTo persists the contract into dir, or DefaultPactDir when dir is empty.
	WriteTo(dir string) error
}

// Pact is a request/response contract between one consumer and one provider.
type Pact struct {
	consumer     string
	provider     string
	specVersion  SpecVersion
	interactions []*Interaction
}

var _ Document = (*Pact)(nil)

func (p *Pact) Consumer() string {
	return p.consumer
}

func (p *Pact) Provider() string {
	return p.provider
}

func (p *Pact) SpecVersion() SpecVersion {
	return p.specVersion.OrDefault()
}

func (p *Pact) Interactions() []*Interaction {
	return append([]*Interaction(nil), p.interactions...)
}

func (p *Pact) MergeInteractions(interactions []*Interaction) {
	p.interactions = append(p.interactions, interactions...)
}

func (p *Pact) FileName() string {
	return fmt.Sprintf("%s-%s.json", p.consumer, p.provider)
}

func (p *Pact) MarshalJSON() ([]byte, error) {
	return p.marshal(nil)
}

// WriteTo writes the pact file. Interactions already present in an existing
// file are kept unless redefined by this pact.
func (p *Pact) WriteTo(dir string) error {
	if dir == "" {
		dir = DefaultPactDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "unable to create pact directory")
	}

	path := filepath.Join(dir, p.FileName())
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "unable to read existing pact file %s", path)
	}

	data, err := p.marshal(existing)
	if err != nil {
		return errors.Wrapf(err, "unable to serialize pact for %s", path)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "unable to write pact file %s", path)
	}
	log.Infof("wrote pact file %s (%d interactions)", path, len(p.interactions))
	return nil
}

type participant struct {
	Name string `json:"name"`
}

type pactFile struct {
	Consumer     participant       `json:"consumer"`
	Provider     participant       `json:"provider"`
	Interactions []json.RawMessage `json:"interactions"`
}

func (p *Pact) marshal(existing []byte) ([]byte, error) {
	defined := make(map[string]bool, len(p.interactions))
	for _, i := range p.interactions {
		defined[i.Key()] = true
	}

	interactions := make([]json.RawMessage, 0, len(p.interactions))
	if len(existing) > 0 {
		if !gjson.ValidBytes(existing) {
			return nil, errors.New("existing pact file is not valid json")
		}
		gjson.GetBytes(existing, "interactions").ForEach(func(_, value gjson.Result) bool {
			key := interactionKey(value.Get("description").String(), providerStateOf(value))
			if !defined[key] {
				interactions = append(interactions, json.RawMessage(value.Raw))
			}
			return true
		})
	}

	for _, i := range p.interactions {
		raw, err := interactionJSON(p.SpecVersion(), i)
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, raw)
	}

	data, err := json.Marshal(pactFile{
		Consumer:     participant{Name: p.consumer},
		Provider:     participant{Name: p.provider},
		Interactions: interactions,
	})
	if err != nil {
		return nil, err
	}

	data, err = sjson.SetBytes(data, "metadata.pactSpecification.version", p.SpecVersion().Version())
	if err != nil {
		return nil, err
	}
	data, err = sjson.SetBytes(data, "metadata.client.name", clientName)
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(data), nil
}

// ReadInteractionDefinitions returns the raw interaction definitions of a pact file.
func ReadInteractionDefinitions(data []byte) ([]json.RawMessage, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("pact file is not valid json")
	}
	interactions := gjson.GetBytes(data, "interactions")
	if !interactions.IsArray() {
		return nil, errors.New("pact file has no interactions array")
	}

	var definitions []json.RawMessage
	interactions.ForEach(func(_, value gjson.Result) bool {
		definitions = append(definitions, json.RawMessage(value.Raw))
		return true
	})
	return definitions, nil
}

// InteractionDefinitions serializes the interactions of a document, in order.
func InteractionDefinitions(doc Document) ([]json.RawMessage, error) {
	var definitions []json.RawMessage
	for _, i := range doc.Interactions() {
		raw, err := interactionJSON(doc.SpecVersion(), i)
		if err != nil {
			return nil, err
		}
		definitions = append(definitions, raw)
	}
	return definitions, nil
}

// interactionJSON serializes i in the layout of version. From V3 on the
// provider state is written as a single entry of providerStates.
func interactionJSON(version SpecVersion, i *Interaction) (json.RawMessage, error) {
	raw, err := json.Marshal(i)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to serialize interaction '%s'", i.Description)
	}
	if version.OrDefault() < V3 || i.ProviderState == "" {
		return raw, nil
	}

	raw, err = sjson.DeleteBytes(raw, "providerState")
	if err != nil {
		return nil, errors.Wrapf(err, "unable to serialize provider state of '%s'", i.Description)
	}
	raw, err = sjson.SetBytes(raw, "providerStates", []map[string]string{{"name": i.ProviderState}})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to serialize provider state of '%s'", i.Description)
	}
	return raw, nil
}

func providerStateOf(interaction gjson.Result) string {
	if state := interaction.Get("providerState"); state.Exists() {
		return state.String()
	}
	return interaction.Get("providerStates.0.name").String()
}
