package consumer

import (
	log "github.com/sirupsen/logrus"
)

// discovered holds the fixtures of a subject split by kind, each list in
// registration order.
type discovered struct {
	contracts        []Fixture
	requestDefaults  []Fixture
	responseDefaults []Fixture
}

// discover collects and validates the fixtures of subject. The first
// signature violation aborts discovery.
func discover(subject Subject) (*discovered, error) {
	d := &discovered{}
	if subject == nil {
		return d, nil
	}

	for _, f := range subject.PactFixtures() {
		if err := validateSignature(f); err != nil {
			return nil, err
		}
		switch f.Kind {
		case KindContract:
			d.contracts = append(d.contracts, f)
		case KindDefaultRequest:
			d.requestDefaults = append(d.requestDefaults, f)
		case KindDefaultResponse:
			d.responseDefaults = append(d.responseDefaults, f)
		}
	}

	log.Debugf("discovered %d contract fixtures, %d default request and %d default response fixtures",
		len(d.contracts), len(d.requestDefaults), len(d.responseDefaults))
	return d, nil
}
