// Package claims implements short-lived, key-protected leases on records,
// persisted in a JSON side file next to the roadmap.
//
// Every operation reads the file under an inter-process lock, drops
// expired claims, applies its change and writes the file back atomically.
// Expiry is lazy: there is no background sweeper.
package claims

import (
	"crypto/rand"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mesh-intelligence/roadmap/internal/fileio"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

//go:embed schema.json
var schemaJSON string

const schemaURL = "claims.schema.json"

const (
	keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	keyLength   = 4
)

var keyPattern = regexp.MustCompile(`^[a-z0-9]{4}$`)

// file is the on-disk layout.
type file struct {
	Claims map[types.ID]types.Claim `json:"claims"`
}

// Options configures a Store.
type Options struct {
	// Path of the claims file.
	Path string

	// Expiry is how long a claim stays live. Zero means two hours.
	Expiry time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	// Rand is the randomness source for keys. Defaults to crypto/rand.
	Rand io.Reader

	// LockTimeout bounds the wait for the claims lock.
	LockTimeout time.Duration

	Logger *log.Logger
}

// Store is the file-backed claim store.
type Store struct {
	path        string
	expiry      time.Duration
	now         func() time.Time
	rand        io.Reader
	lockTimeout time.Duration
	logger      *log.Logger
	schema      *jsonschema.Schema
}

// Status describes the claim on one record.
type Status struct {
	Claimed   bool          `json:"claimed"`
	Owner     string        `json:"owner,omitempty"`
	Timestamp time.Time     `json:"timestamp,omitzero"`
	Remaining time.Duration `json:"remaining,omitempty"`
}

var _ types.ClaimStore = (*Store)(nil)

// New returns a store for opts.Path. The file is created on first write.
func New(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("claims path must not be empty")
	}
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("loading claims schema: %w", err)
	}
	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compiling claims schema: %w", err)
	}
	s := &Store{
		path:        opts.Path,
		expiry:      opts.Expiry,
		now:         opts.Now,
		rand:        opts.Rand,
		lockTimeout: opts.LockTimeout,
		logger:      opts.Logger,
		schema:      sch,
	}
	if s.expiry <= 0 {
		s.expiry = types.DefaultClaimExpiry
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s, nil
}

// Path returns the claims file path.
func (s *Store) Path() string {
	return s.path
}

// Expiry returns the claim lifetime.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Claim creates a lease on id and returns its key. A live claim on id
// makes it fail with ClaimExists; an expired one is replaced.
func (s *Store) Claim(id types.ID) (string, error) {
	var key string
	err := s.update(func(f *file, now time.Time) (bool, error) {
		if c, ok := f.Claims[id]; ok {
			return false, types.NewError(types.KindClaimExists, id,
				"already claimed by %s (%s remaining)", c.Owner, FormatRemaining(c.Remaining(now, s.expiry)))
		}
		k, err := s.newKey(f)
		if err != nil {
			return false, err
		}
		key = k
		f.Claims[id] = types.Claim{Owner: k, Timestamp: now.UTC()}
		return true, nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("claimed", "id", id, "owner", key)
	return key, nil
}

// Unclaim removes the live claim holding key and returns its record.
func (s *Store) Unclaim(key string) (types.ID, error) {
	if !keyPattern.MatchString(key) {
		return "", types.NewError(types.KindInvalidFormat, "", "invalid claim key %q", key)
	}
	var released types.ID
	err := s.update(func(f *file, _ time.Time) (bool, error) {
		for id, c := range f.Claims {
			if c.Owner == key {
				released = id
				delete(f.Claims, id)
				return true, nil
			}
		}
		return false, types.NewError(types.KindClaimNotFound, "", "no claim with key %s", key)
	})
	if err != nil {
		return "", err
	}
	s.logger.Debug("unclaimed", "id", released, "owner", key)
	return released, nil
}

// CheckKey reports whether a mutation on id may proceed with key.
func (s *Store) CheckKey(id types.ID, key string) (bool, error) {
	c, ok, err := s.Get(id)
	if err != nil {
		return false, err
	}
	return !ok || c.Owner == key, nil
}

// Get returns the live claim on id.
func (s *Store) Get(id types.ID) (types.Claim, bool, error) {
	var (
		claim types.Claim
		found bool
	)
	err := s.update(func(f *file, _ time.Time) (bool, error) {
		claim, found = f.Claims[id]
		return false, nil
	})
	return claim, found, err
}

// Status describes the live claim on id.
func (s *Store) Status(id types.ID) (Status, error) {
	c, ok, err := s.Get(id)
	if err != nil || !ok {
		return Status{}, err
	}
	return Status{
		Claimed:   true,
		Owner:     c.Owner,
		Timestamp: c.Timestamp,
		Remaining: c.Remaining(s.now(), s.expiry),
	}, nil
}

// List returns every live claim.
func (s *Store) List() (map[types.ID]types.Claim, error) {
	var out map[types.ID]types.Claim
	err := s.update(func(f *file, _ time.Time) (bool, error) {
		out = make(map[types.ID]types.Claim, len(f.Claims))
		for id, c := range f.Claims {
			out[id] = c
		}
		return false, nil
	})
	return out, err
}

// HandleStatusChange drops the claim on id unless the new status is
// claimed. It returns the dropped claim.
func (s *Store) HandleStatusChange(id types.ID, newStatus types.Status) (*types.ReleasedClaim, error) {
	if newStatus == types.StatusClaimed {
		return nil, nil
	}
	var released *types.ReleasedClaim
	err := s.update(func(f *file, _ time.Time) (bool, error) {
		c, ok := f.Claims[id]
		if !ok {
			return false, nil
		}
		delete(f.Claims, id)
		released = &types.ReleasedClaim{TaskID: id, Owner: c.Owner}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// CleanupExpired removes every expired claim and reports them sorted by
// id.
func (s *Store) CleanupExpired() ([]types.ReleasedClaim, error) {
	var released []types.ReleasedClaim
	err := s.withLock(func() error {
		f, err := s.read()
		if err != nil {
			return err
		}
		released = s.expire(f, s.now())
		if len(released) == 0 {
			return nil
		}
		return s.write(f)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(released, func(i, j int) bool {
		return types.CompareIDs(released[i].TaskID, released[j].TaskID) < 0
	})
	return released, nil
}

// update runs fn on the live claims under the lock. The file is written
// if fn reports a change or expired claims were dropped.
func (s *Store) update(fn func(f *file, now time.Time) (bool, error)) error {
	return s.withLock(func() error {
		f, err := s.read()
		if err != nil {
			return err
		}
		now := s.now()
		dirty := len(s.expire(f, now)) > 0
		changed, err := fn(f, now)
		if err != nil {
			if dirty {
				if werr := s.write(f); werr != nil {
					s.logger.Warn("dropping expired claims failed", "err", werr)
				}
			}
			return err
		}
		if changed || dirty {
			return s.write(f)
		}
		return nil
	})
}

func (s *Store) expire(f *file, now time.Time) []types.ReleasedClaim {
	var released []types.ReleasedClaim
	for id, c := range f.Claims {
		if c.Expired(now, s.expiry) {
			released = append(released, types.ReleasedClaim{TaskID: id, Owner: c.Owner})
			delete(f.Claims, id)
			s.logger.Info("claim expired", "id", id, "owner", c.Owner)
		}
	}
	return released
}

func (s *Store) withLock(fn func() error) error {
	lock, err := fileio.Acquire(s.path+".lock", s.lockTimeout)
	if err != nil {
		return types.IOError(types.KindWriteFailed, s.path, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn("releasing claims lock", "err", err)
		}
	}()
	return fn()
}

// read loads and validates the claims file. A missing or empty file holds
// no claims.
func (s *Store) read() (*file, error) {
	f := &file{Claims: make(map[types.ID]types.Claim)}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, types.IOError(types.KindReadFailed, s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return f, nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, types.IOError(types.KindReadFailed, s.path, err)
	}
	if err := s.schema.Validate(raw); err != nil {
		return nil, types.IOError(types.KindReadFailed, s.path, schemaError(err))
	}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, types.IOError(types.KindReadFailed, s.path, err)
	}
	if f.Claims == nil {
		f.Claims = make(map[types.ID]types.Claim)
	}
	return f, nil
}

func (s *Store) write(f *file) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return types.IOError(types.KindWriteFailed, s.path, err)
	}
	if err := fileio.WriteFile(s.path, append(data, '\n')); err != nil {
		return types.IOError(types.KindWriteFailed, s.path, err)
	}
	return nil
}

// newKey draws a key not held by any live claim.
func (s *Store) newKey(f *file) (string, error) {
	used := make(map[string]bool, len(f.Claims))
	for _, c := range f.Claims {
		used[c.Owner] = true
	}
	limit := big.NewInt(int64(len(keyAlphabet)))
	for attempt := 0; attempt < 100; attempt++ {
		var b strings.Builder
		for i := 0; i < keyLength; i++ {
			n, err := rand.Int(s.rand, limit)
			if err != nil {
				return "", fmt.Errorf("generating claim key: %w", err)
			}
			b.WriteByte(keyAlphabet[n.Int64()])
		}
		if key := b.String(); !used[key] {
			return key, nil
		}
	}
	return "", errors.New("generating claim key: no free key found")
}

// schemaError flattens a validation error into one message per failing
// location.
func schemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	var msgs []string
	collectSchemaErrors(ve, &msgs)
	return fmt.Errorf("invalid claims file: %s", strings.Join(msgs, "; "))
}

func collectSchemaErrors(err *jsonschema.ValidationError, msgs *[]string) {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		*msgs = append(*msgs, loc+": "+err.Message)
		return
	}
	for _, cause := range err.Causes {
		collectSchemaErrors(cause, msgs)
	}
}

// FormatRemaining renders a duration as "1h 5m" or "12m".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	minutes := int(d / time.Minute)
	if h := minutes / 60; h > 0 {
		return fmt.Sprintf("%dh %dm", h, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
