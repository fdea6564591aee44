package consumer

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/form3tech-oss/pact-consumer/internal/app/configuration"
	"github.com/form3tech-oss/pact-consumer/pkg/contract"
	"github.com/form3tech-oss/pact-consumer/pkg/mockserver"
	log "github.com/sirupsen/logrus"
)

// TestNameComment is the interaction comment carrying the test display name
// in V4 pacts.
const TestNameComment = "testname"

// TestBody is the user action wrapped by a Rule.
type TestBody func() error

// Rule runs tests of a subject against a mock service of one provider.
// A Rule must not run two tests at the same time.
type Rule struct {
	subject       Subject
	provider      string
	config        mockserver.Config
	factory       mockserver.Factory
	expressions   ExpressionResolver
	pactDirectory string

	discoverOnce sync.Once
	discovered   *discovered
	discoverErr  error

	mu      sync.RWMutex
	current mockserver.MockServer
}

type Option func(*Rule)

func WithConfig(config mockserver.Config) Option {
	return func(r *Rule) {
		r.config = config.WithDefaults()
	}
}

func WithFactory(factory mockserver.Factory) Option {
	return func(r *Rule) {
		r.factory = factory
	}
}

func WithExpressionResolver(resolver ExpressionResolver) Option {
	return func(r *Rule) {
		r.expressions = resolver
	}
}

// WithPactDirectory overrides the directory declared by the subject.
func WithPactDirectory(dir string) Option {
	return func(r *Rule) {
		r.pactDirectory = dir
	}
}

func NewRule(subject Subject, provider string, opts ...Option) *Rule {
	r := &Rule{
		subject:     subject,
		provider:    provider,
		config:      mockserver.HTTPConfig("", 0, contract.DefaultSpecVersion, mockserver.ImplementationDefault),
		factory:     mockserver.FactoryFunc(configuration.StartMockService),
		expressions: &EnvExpressionResolver{values: map[string]string{}, lookup: os.LookupEnv},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRuleFromEnv configures the mock service, pact directory and placeholder
// values from PACT_* environment variables. opts are applied afterwards.
func NewRuleFromEnv(subject Subject, provider string, opts ...Option) (*Rule, error) {
	config, err := configuration.NewRunConfigFromEnv()
	if err != nil {
		return nil, err
	}

	var envFiles []string
	if config.EnvFile != "" {
		envFiles = append(envFiles, config.EnvFile)
	}
	resolver, err := NewEnvExpressionResolver(envFiles...)
	if err != nil {
		return nil, err
	}

	envOpts := []Option{
		WithConfig(config.MockServer),
		WithExpressionResolver(resolver),
		WithPactDirectory(config.PactDirectory),
	}
	return NewRule(subject, provider, append(envOpts, opts...)...), nil
}

func (r *Rule) Provider() string {
	return r.provider
}

func (r *Rule) Config() mockserver.Config {
	return r.config
}

// MockServer returns the running mock service. It is only available while a
// test body executes.
func (r *Rule) MockServer() (mockserver.MockServer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.current != nil
}

func (r *Rule) URL() (string, bool) {
	server, ok := r.MockServer()
	if !ok {
		return "", false
	}
	return server.URL(), true
}

func (r *Rule) Port() (int, bool) {
	server, ok := r.MockServer()
	if !ok {
		return 0, false
	}
	return server.Port(), true
}

func (r *Rule) setCurrent(server mockserver.MockServer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = server
}

// Apply wraps body with the contract test described by desc. Tests not
// asking for this rule's provider run body unchanged.
func (r *Rule) Apply(desc Description, body TestBody) TestBody {
	return func() error {
		return r.evaluate(context.Background(), desc, body)
	}
}

// Run runs body as a contract test of t and fails t on any error.
func (r *Rule) Run(t testing.TB, desc Description, body func() error) {
	t.Helper()
	if desc.DisplayName == "" {
		desc.DisplayName = t.Name()
	}
	if err := r.Apply(desc, body)(); err != nil {
		t.Fatal(err)
	}
}

// Chain wraps body with every rule, the first rule being the outermost.
func Chain(desc Description, body TestBody, rules ...*Rule) TestBody {
	for i := len(rules) - 1; i >= 0; i-- {
		body = rules[i].Apply(desc, body)
	}
	return body
}

func (r *Rule) evaluate(ctx context.Context, desc Description, body TestBody) error {
	var (
		doc contract.Document
		err error
	)
	if len(desc.Verifications) > 0 {
		doc, err = r.multiProviderContract(desc)
	} else {
		doc, err = r.singleProviderContract(desc)
	}
	if err != nil {
		return err
	}
	if doc == nil {
		return body()
	}

	if doc.SpecVersion() == contract.V4 && desc.DisplayName != "" {
		for _, i := range doc.Interactions() {
			i.Annotate(TestNameComment, desc.DisplayName)
		}
	}

	orchestrator := Orchestrator{
		Factory:       r.factory,
		PactDirectory: r.directory(desc),
	}
	result := orchestrator.RunContractTest(ctx, doc, r.config, func(server mockserver.MockServer) error {
		r.setCurrent(server)
		defer r.setCurrent(nil)
		return body()
	})
	return ValidateResult(result)
}

// singleProviderContract returns nil without error when the test has no
// contract for this provider.
func (r *Rule) singleProviderContract(desc Description) (contract.Document, error) {
	if desc.Verification == nil || !desc.Verification.requestsProvider(r.provider) {
		return nil, nil
	}

	d, err := r.discover()
	if err != nil {
		return nil, err
	}
	candidates, err := resolveCandidates(d.contracts, r.expressions)
	if err != nil {
		return nil, err
	}

	c, ok := resolve(candidates, r.provider, desc.Verification.Fragments)
	if !ok {
		log.WithField("provider", r.provider).Debug("no pact fixture for this test, running it without mock service")
		return nil, nil
	}
	return r.invoke(c, d)
}

func (r *Rule) multiProviderContract(desc Description) (contract.Document, error) {
	verifications, err := filterVerifications(desc.Verifications, r.provider)
	if err != nil {
		return nil, err
	}
	if len(verifications) == 0 {
		return nil, nil
	}

	d, err := r.discover()
	if err != nil {
		return nil, err
	}
	candidates, err := resolveCandidates(d.contracts, r.expressions)
	if err != nil {
		return nil, err
	}

	selected, err := resolveAll(candidates, r.provider, verifications)
	if err != nil {
		return nil, err
	}

	fragments := make([]contract.Document, 0, len(selected))
	for _, c := range selected {
		doc, err := r.invoke(c, d)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, doc)
	}
	return merge(fragments)
}

func (r *Rule) invoke(c candidate, d *discovered) (contract.Document, error) {
	consumer, err := r.expressions.Resolve(c.Consumer)
	if err != nil {
		return nil, err
	}
	if consumer == "" {
		return nil, configurationErrorf("pact fixture %s declares no consumer", c.Name())
	}

	builder := contract.NewBuilder(consumer).
		WithProvider(r.provider).
		WithSpecVersion(r.config.SpecVersion)
	if err := applyDefaults(builder, d); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"provider": r.provider,
		"consumer": consumer,
		"fragment": c.Fragment,
	}).Info("invoking pact fixture")
	return invokeContract(c.Fixture, builder)
}

func (r *Rule) discover() (*discovered, error) {
	r.discoverOnce.Do(func() {
		r.discovered, r.discoverErr = discover(r.subject)
	})
	return r.discovered, r.discoverErr
}

// directory picks, in order, the directory of the run, of the rule and of
// the subject. Empty lets the document use its own default.
func (r *Rule) directory(desc Description) string {
	if desc.PactDirectory != "" {
		return desc.PactDirectory
	}
	if r.pactDirectory != "" {
		return r.pactDirectory
	}
	if s, ok := r.subject.(DirectorySubject); ok {
		return s.PactDirectory()
	}
	return ""
}
