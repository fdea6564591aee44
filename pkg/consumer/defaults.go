package consumer

import (
	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	log "github.com/sirupsen/logrus"
)

// applyDefaults registers the request and response templates of the subject
// on builder. When several fixtures of the same kind are declared the last
// one wins.
func applyDefaults(builder *contract.Builder, d *discovered) error {
	if n := len(d.requestDefaults); n > 0 {
		if n > 1 {
			log.Warnf("%d default request fixtures declared, using %s", n, d.requestDefaults[n-1].Name())
		}
		defaults := builder.NewRequestDefaults()
		if err := invokeDefaults(d.requestDefaults[n-1], defaults); err != nil {
			return err
		}
		builder.SetDefaultRequestValues(defaults)
	}

	if n := len(d.responseDefaults); n > 0 {
		if n > 1 {
			log.Warnf("%d default response fixtures declared, using %s", n, d.responseDefaults[n-1].Name())
		}
		defaults := builder.NewResponseDefaults()
		if err := invokeDefaults(d.responseDefaults[n-1], defaults); err != nil {
			return err
		}
		builder.SetDefaultResponseValues(defaults)
	}
	return nil
}
