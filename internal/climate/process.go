package climate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/fairdiet/fairdiet/internal/logging"
)

const (
	// ProtocolVersion is the request format this client speaks.
	ProtocolVersion = "1.0.0"

	// DefaultProtocolConstraint accepts any 1.x response.
	DefaultProtocolConstraint = "^1.0"

	// DefaultTimeout bounds a single model run.
	DefaultTimeout = 30 * time.Second

	// EnvProtocol is set in the model's environment to ProtocolVersion.
	EnvProtocol = "FAIRDIET_CLIMATE_PROTOCOL"

	processWaitDelay = 100 * time.Millisecond // Time to wait for I/O after killing the process
	maxStderrTail    = 512
)

// request is written to the model's stdin.
type request struct {
	Protocol  string    `json:"protocol"`
	FirstYear int       `json:"first_year"`
	Emissions []float64 `json:"emissions"`
}

// response is read from the model's stdout.
type response struct {
	Protocol string `json:"protocol"`
	Error    string `json:"error,omitempty"`
	Projection
}

// ProcessModel runs an external executable once per projection. The request
// is a JSON object on stdin and the projection a JSON object on stdout; the
// response's protocol version must satisfy the configured constraint.
type ProcessModel struct {
	path       string
	args       []string
	env        []string
	timeout    time.Duration
	firstYear  int
	constraint *semver.Constraints
	rawConstr  string
}

// ProcessOption configures a ProcessModel.
type ProcessOption func(*processOptions)

type processOptions struct {
	timeout    time.Duration
	constraint string
	firstYear  int
	env        []string
}

// WithTimeout bounds each run. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) ProcessOption {
	return func(o *processOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithProtocolConstraint sets the semver constraint the model's reported
// protocol version must satisfy.
func WithProtocolConstraint(c string) ProcessOption {
	return func(o *processOptions) {
		if c != "" {
			o.constraint = c
		}
	}
}

// WithFirstYear tells the model which calendar year index 0 is.
func WithFirstYear(year int) ProcessOption {
	return func(o *processOptions) { o.firstYear = year }
}

// WithEnv adds KEY=VALUE entries to the model's environment.
func WithEnv(env ...string) ProcessOption {
	return func(o *processOptions) { o.env = append(o.env, env...) }
}

// NewProcessModel validates the options and returns a model for path.
func NewProcessModel(path string, args []string, opts ...ProcessOption) (*ProcessModel, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("climate model command is empty")
	}
	o := processOptions{timeout: DefaultTimeout, constraint: DefaultProtocolConstraint}
	for _, opt := range opts {
		opt(&o)
	}
	constraint, err := semver.NewConstraint(o.constraint)
	if err != nil {
		return nil, fmt.Errorf("parsing protocol constraint %q: %w", o.constraint, err)
	}
	return &ProcessModel{
		path:       path,
		args:       append([]string(nil), args...),
		env:        o.env,
		timeout:    o.timeout,
		firstYear:  o.firstYear,
		constraint: constraint,
		rawConstr:  o.constraint,
	}, nil
}

// Name returns the executable's base name.
func (p *ProcessModel) Name() string {
	return filepath.Base(p.path)
}

// identity is the JSON form of everything that can change a run's output.
type identity struct {
	Path       string     `json:"path"`
	Args       []string   `json:"args"`
	Env        []string   `json:"env"`
	Constraint string     `json:"constraint"`
	FirstYear  int        `json:"first_year"`
	Protocol   string     `json:"protocol"`
	Files      []fileStat `json:"files,omitempty"`
}

type fileStat struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"`
}

// Identity describes the command line, extra environment, protocol
// constraint and first year. The executable and any argument naming an
// existing file also contribute its size and modification time, so editing
// a model script changes the identity.
func (p *ProcessModel) Identity() string {
	id := identity{
		Path:       p.path,
		Args:       p.args,
		Env:        p.env,
		Constraint: p.rawConstr,
		FirstYear:  p.firstYear,
		Protocol:   ProtocolVersion,
	}
	for _, name := range append([]string{p.path}, p.args...) {
		info, err := os.Stat(name)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		id.Files = append(id.Files, fileStat{Path: name, Size: info.Size(), ModTime: info.ModTime().UnixNano()})
	}
	//nolint:errchkjson // Strings, ints and slices of them always encode.
	out, _ := json.Marshal(id)
	return string(out)
}

// Project runs the executable and decodes its projection.
func (p *ProcessModel) Project(ctx context.Context, emissions []float64) (Projection, error) {
	log := logging.FromContext(ctx)
	start := time.Now()

	payload, err := json.Marshal(request{Protocol: ProtocolVersion, FirstYear: p.firstYear, Emissions: emissions})
	if err != nil {
		return Projection{}, &ModelError{Model: p.Name(), Reason: "encoding request", Err: err}
	}

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	//nolint:gosec // The model command comes from the user's own configuration.
	cmd := exec.CommandContext(runCtx, p.path, p.args...)
	cmd.Env = append(os.Environ(), EnvProtocol+"="+ProtocolVersion)
	cmd.Env = append(cmd.Env, p.env...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = processWaitDelay

	log.Debug().
		Ctx(ctx).
		Str("component", "climate").
		Str("operation", "project").
		Str("model_path", p.path).
		Int("years", len(emissions)).
		Msg("running climate model")

	if err = cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			err = fmt.Errorf("%w: %w", runCtx.Err(), err)
		}
		return Projection{}, &ModelError{Model: p.Name(), Reason: stderrTail(&stderr), Err: err}
	}

	var resp response
	if err = json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Projection{}, &ModelError{Model: p.Name(), Reason: "decoding response", Err: err}
	}
	if resp.Error != "" {
		return Projection{}, &ModelError{Model: p.Name(), Reason: resp.Error}
	}
	if err = p.checkProtocol(resp.Protocol); err != nil {
		return Projection{}, &ModelError{Model: p.Name(), Err: err}
	}

	log.Debug().
		Ctx(ctx).
		Str("component", "climate").
		Str("protocol", resp.Protocol).
		Dur("duration", time.Since(start)).
		Msg("climate model finished")

	return resp.Projection, nil
}

func (p *ProcessModel) checkProtocol(reported string) error {
	if reported == "" {
		return errors.New("response has no protocol version")
	}
	v, err := semver.NewVersion(reported)
	if err != nil {
		return fmt.Errorf("invalid protocol version %q: %w", reported, err)
	}
	if !p.constraint.Check(v) {
		return fmt.Errorf("protocol version %s does not satisfy %s", v, p.constraint)
	}
	return nil
}

func stderrTail(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if len(s) > maxStderrTail {
		s = "..." + s[len(s)-maxStderrTail:]
	}
	if s == "" {
		return "process failed"
	}
	return s
}
