package directory

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/tphan267/arqut-fleet/pkg/config"
	"github.com/tphan267/arqut-fleet/pkg/errs"
	"github.com/tphan267/arqut-fleet/pkg/logger"
	"github.com/tphan267/arqut-fleet/pkg/models"
	"github.com/tphan267/arqut-fleet/pkg/providers"
	"github.com/tphan267/arqut-fleet/pkg/storage"
)

// Credential rules
const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

// Service manages operator accounts
type Service struct {
	storage storage.Storage
	hasher  PasswordHasher
	logger  *logger.Logger
}

// NewService creates a new directory service. A nil hasher is chosen from
// the password_hash setting at Initialize.
func NewService(hasher PasswordHasher) *Service {
	return &Service{hasher: hasher}
}

// Name returns the service name
func (s *Service) Name() string {
	return providers.DirectoryService
}

// Initialize sets up the service and its hashing scheme
func (s *Service) Initialize(ctx context.Context, registry *providers.Registry) error {
	s.storage = registry.DB()
	s.logger = registry.Logger().Named("directory")

	if s.hasher == nil {
		hasher, err := NewHasher(registry.Config().PasswordHash)
		if err != nil {
			return err
		}
		s.hasher = hasher
	}

	if s.hasher.Name() == config.HashSHA256 {
		s.logger.Warn("Operator passwords use unsalted sha256; set password_hash: argon2id for new hashes")
	}
	return nil
}

// IsRunnable returns false as the directory doesn't need background processing
func (s *Service) IsRunnable() bool {
	return false
}

// Start is not used for the directory service
func (s *Service) Start(ctx context.Context) error {
	return nil
}

// Stop is a no-op
func (s *Service) Stop(ctx context.Context) error {
	return nil
}

// RegisterAPIRoutes registers user routes
func (s *Service) RegisterAPIRoutes(app interface{}) error {
	if fiberApp, ok := app.(*fiber.App); ok {
		s.RegisterRoutes(fiberApp)
		return nil
	}
	return fmt.Errorf("invalid app type, expected *fiber.App")
}

// Create adds an operator account. The unique index on username is what
// rejects duplicates; the pre-check only gives a cheaper early answer.
func (s *Service) Create(ctx context.Context, in providers.CreateUserInput) (*models.User, error) {
	if err := validateUsername(in.Username); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	level := in.AccessLevel
	if level == "" {
		level = models.AccessUser
	}
	if !level.Valid() {
		return nil, errs.Validation("access_level must be one of admin, user")
	}

	taken, err := s.storage.Users().UsernameTaken(ctx, in.Username, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return nil, errs.Conflict(nil, "User %q already exists", in.Username)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:    in.Username,
		Password:    hash,
		AccessLevel: level,
	}
	if err := s.storage.Users().Create(ctx, user); err != nil {
		if errs.KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Created %s account %s", user.AccessLevel, user.Username)
	return user, nil
}

// List returns all users ordered by id
func (s *Service) List(ctx context.Context) ([]models.User, error) {
	users, err := s.storage.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Update changes only the supplied fields. With nothing supplied the stored
// record is returned as is and updated_at does not move.
func (s *Service) Update(ctx context.Context, id uint, in providers.UpdateUserInput) (*models.User, error) {
	current, err := s.storage.Users().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Empty() {
		return current, nil
	}

	updates := make(map[string]any)

	if in.Username != nil {
		if err := validateUsername(*in.Username); err != nil {
			return nil, err
		}
		if *in.Username != current.Username {
			taken, err := s.storage.Users().UsernameTaken(ctx, *in.Username, id)
			if err != nil {
				return nil, fmt.Errorf("failed to check username: %w", err)
			}
			if taken {
				return nil, errs.Conflict(nil, "User %q already exists", *in.Username)
			}
		}
		updates["username"] = *in.Username
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updates["password"] = hash
	}
	if in.AccessLevel != nil {
		if !in.AccessLevel.Valid() {
			return nil, errs.Validation("access_level must be one of admin, user")
		}
		updates["access_level"] = *in.AccessLevel
	}

	if err := s.storage.Users().Update(ctx, id, updates); err != nil {
		if errs.KindOf(err) != 0 {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}

	return s.storage.Users().Get(ctx, id)
}

// Delete removes a user. An unknown id is reported in the result, not as
// an error.
func (s *Service) Delete(ctx context.Context, id uint) (providers.DeleteResult, error) {
	rows, err := s.storage.Users().Delete(ctx, id)
	if err != nil {
		return providers.DeleteResult{}, fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	if rows == 0 {
		return providers.DeleteResult{Outcome: providers.UserNotFound}, nil
	}

	s.logger.Info("Deleted user %d", id)
	return providers.DeleteResult{Outcome: providers.UserDeleted}, nil
}

func validateUsername(username string) error {
	if len(username) < MinUsernameLength {
		return errs.Validation("username must be at least %d characters", MinUsernameLength)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errs.Validation("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
