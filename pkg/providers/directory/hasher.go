package directory

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/tphan267/arqut-fleet/pkg/config"
	"golang.org/x/crypto/argon2"
)

// PasswordHasher turns a plaintext password into the stored form
type PasswordHasher interface {
	// Name identifies the scheme
	Name() string
	// Hash returns the encoded hash of password
	Hash(password string) (string, error)
	// Verify reports whether password matches encoded
	Verify(password, encoded string) (bool, error)
}

// NewHasher returns the hasher for a configured scheme
func NewHasher(scheme string) (PasswordHasher, error) {
	switch scheme {
	case "", config.HashSHA256:
		return SHA256Hasher{}, nil
	case config.HashArgon2ID:
		return NewArgon2Hasher(), nil
	default:
		return nil, fmt.Errorf("unsupported password hash scheme: %s", scheme)
	}
}

// SHA256Hasher stores the unsalted hex SHA-256 digest. It is deterministic
// and fast, which makes it weak against offline guessing; it is kept so
// existing accounts keep working.
type SHA256Hasher struct{}

func (SHA256Hasher) Name() string {
	return config.HashSHA256
}

func (SHA256Hasher) Hash(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:]), nil
}

func (h SHA256Hasher) Verify(password, encoded string) (bool, error) {
	got, _ := h.Hash(password)
	return subtle.ConstantTimeCompare([]byte(got), []byte(encoded)) == 1, nil
}

// Argon2Hasher stores salted argon2id hashes in PHC form:
// argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
type Argon2Hasher struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// NewArgon2Hasher returns a hasher with the recommended parameters
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLen:     16,
		KeyLen:      32,
	}
}

func (h *Argon2Hasher) Name() string {
	return config.HashArgon2ID
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.Iterations, h.Memory, h.Parallelism, h.KeyLen)

	enc := base64.RawStdEncoding
	return fmt.Sprintf("argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Memory, h.Iterations, h.Parallelism,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

func (h *Argon2Hasher) Verify(password, encoded string) (bool, error) {
	params, salt, want, err := parseArgon2(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Bounds on the cost of verifying a stored argon2id hash
const (
	maxArgon2Memory      = 256 * 1024
	maxArgon2Iterations  = 16
	maxArgon2Parallelism = 16
	maxArgon2SaltLen     = 64
	maxArgon2KeyLen      = 128
)

var errBadArgon2 = errors.New("invalid argon2id hash")

func parseArgon2(encoded string) (*Argon2Hasher, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return nil, nil, nil, errBadArgon2
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("%w: unsupported version", errBadArgon2)
	}

	params := &Argon2Hasher{}
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &params.Memory, &params.Iterations, &params.Parallelism); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", errBadArgon2, err)
	}
	if params.Memory == 0 || params.Memory > maxArgon2Memory ||
		params.Iterations == 0 || params.Iterations > maxArgon2Iterations ||
		params.Parallelism == 0 || params.Parallelism > maxArgon2Parallelism {
		return nil, nil, nil, fmt.Errorf("%w: parameters out of range", errBadArgon2)
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[3])
	if err != nil || len(salt) > maxArgon2SaltLen {
		return nil, nil, nil, fmt.Errorf("%w: bad salt", errBadArgon2)
	}
	key, err := enc.DecodeString(parts[4])
	if err != nil || len(key) < 16 || len(key) > maxArgon2KeyLen {
		return nil, nil, nil, fmt.Errorf("%w: bad key", errBadArgon2)
	}
	return params, salt, key, nil
}
