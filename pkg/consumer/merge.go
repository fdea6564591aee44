package consumer

import (
	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/pkg/errors"
)

// merge folds fragments into the first one, keeping interaction order and
// duplicates. Fragments of different consumers or spec versions cannot be
// merged.
func merge(fragments []contract.Document) (contract.Document, error) {
	if len(fragments) == 0 {
		return nil, errors.New("no pact fragments to merge")
	}

	result := fragments[0]
	for _, fragment := range fragments[1:] {
		if fragment.Consumer() != result.Consumer() {
			return nil, configurationErrorf("cannot merge pact fragments of consumers %s and %s",
				result.Consumer(), fragment.Consumer())
		}
		if fragment.SpecVersion() != result.SpecVersion() {
			return nil, configurationErrorf("cannot merge pact fragments with spec versions %s and %s",
				result.SpecVersion(), fragment.SpecVersion())
		}
		result.MergeInteractions(fragment.Interactions())
	}
	return result, nil
}
