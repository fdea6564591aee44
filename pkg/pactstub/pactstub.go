package pactstub

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/form3tech-oss/pact-consumer/internal/app/configuration"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// StubStatus is the state of one stub served by pact-stub.
type StubStatus configuration.StubStatus

// Admin is a client for the admin API of a pact-stub process.
type Admin struct {
	client http.Client
	url    string
}

func Configuration(url string) *Admin {
	return &Admin{
		client: http.Client{
			Timeout: 30 * time.Second,
		},
		url: strings.TrimSuffix(url, "/"),
	}
}

func (a *Admin) IsReady() error {
	res, err := a.client.Get(a.url + "/ready")
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("pact-stub is not ready. %d", res.StatusCode)
	}
	return nil
}

// Mismatches returns the status of every stub by pact file name.
func (a *Admin) Mismatches() (map[string]StubStatus, error) {
	res, err := a.client.Get(a.url + "/mismatches")
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read mismatches")
	}
	if res.StatusCode != http.StatusOK {
		return nil, errors.New(string(body))
	}

	status := map[string]StubStatus{}
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal mismatches")
	}
	return status, nil
}

// WaitForAll blocks until every stub received all its interactions or the
// server side wait duration elapsed.
func (a *Admin) WaitForAll() error {
	res, err := a.client.Get(a.url + "/interactions/wait")
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		log.Warnf("waiting for interactions failed. %s", body)
		return errors.New("timeout waiting for interactions")
	}
	return nil
}

// Reset stops every stub.
func (a *Admin) Reset() error {
	req, err := http.NewRequest(http.MethodDelete, a.url+"/stubs", nil)
	if err != nil {
		return err
	}

	res, err := a.client.Do(req)
	if err != nil {
		return err
	}
	res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return errors.Errorf("error resetting stubs. %d", res.StatusCode)
	}
	return nil
}
