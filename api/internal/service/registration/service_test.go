package registration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/signupform/signup/api/internal/domain"
	"github.com/signupform/signup/api/internal/repository"
	"github.com/signupform/signup/pkg/crypto"
	"github.com/signupform/signup/pkg/validation"
)

type fakeUserRepo struct {
	mu        sync.Mutex
	byEmail   map[string]domain.User
	nextID    int64
	createErr error
	calls     int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]domain.User)}
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createErr != nil {
		return f.createErr
	}
	if _, taken := f.byEmail[user.Email]; taken {
		return repository.ErrDuplicateEmail
	}
	f.nextID++
	user.ID = f.nextID
	f.byEmail[user.Email] = *user
	return nil
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byEmail[email]; ok {
		return &u, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepo) CountUsers(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byEmail)), nil
}

func (f *fakeUserRepo) Ping(ctx context.Context) error { return nil }

func newTestService(repo repository.UserRepository) Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(repo, log, bcrypt.MinCost)
}

func juan() domain.RegistrationRequest {
	return domain.RegistrationRequest{
		FullName: "Juan Perez",
		Email:    "juanperez@example.com",
		Password: "P@ssword1",
	}
}

func TestRegisterStoresHashedUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	user, err := svc.Register(context.Background(), juan())
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID != 1 {
		t.Fatalf("expected id 1, got %d", user.ID)
	}
	stored, err := repo.GetUserByEmail(context.Background(), "juanperez@example.com")
	if err != nil {
		t.Fatalf("stored user missing: %v", err)
	}
	if stored.FullName != "Juan Perez" {
		t.Fatalf("unexpected full name %q", stored.FullName)
	}
	if strings.Contains(string(stored.PasswordHash), "P@ssword1") {
		t.Fatalf("password stored in plaintext")
	}
	if err := crypto.ComparePassword(stored.PasswordHash, "P@ssword1"); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
	if stored.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	if _, err := svc.Register(context.Background(), juan()); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	again := juan()
	again.FullName = "Jane Doe"
	_, err := svc.Register(context.Background(), again)
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if count, _ := repo.CountUsers(context.Background()); count != 1 {
		t.Fatalf("expected one stored user, got %d", count)
	}
}

func TestRegisterEmailUniquenessIsCaseSensitive(t *testing.T) {
	// Uppercase emails never pass validation, so exercise the store contract directly.
	repo := newFakeUserRepo()
	if err := repo.CreateUser(context.Background(), &domain.User{Email: "a@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.CreateUser(context.Background(), &domain.User{Email: "A@example.com"}); err != nil {
		t.Fatalf("expected distinct-case email to be accepted, got %v", err)
	}
}

func TestRegisterValidationFailuresStoreNothing(t *testing.T) {
	tests := []struct {
		name string
		req  domain.RegistrationRequest
		rule string
	}{
		{"empty", domain.RegistrationRequest{}, validation.RuleNotEmpty},
		{"whitespace only", domain.RegistrationRequest{FullName: "  ", Email: "x@y.z", Password: "P@ssword1"}, validation.RuleNotEmpty},
		{"padded", domain.RegistrationRequest{FullName: "Juan Perez ", Email: "juan@example.com", Password: "P@ssword1"}, validation.RuleFieldsNotPadded},
		{"short name", domain.RegistrationRequest{FullName: "Jo", Email: "juan@example.com", Password: "P@ssword1"}, validation.RuleFullNameMinLength},
		{"bad email", domain.RegistrationRequest{FullName: "Juan", Email: "juanperez-at-example.com", Password: "P@ssword1"}, validation.RuleEmailFormat},
		{"seven char password", domain.RegistrationRequest{FullName: "Juan", Email: "juan@example.com", Password: "P@ssw1x"}, validation.RulePasswordStrength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeUserRepo()
			svc := newTestService(repo)
			_, err := svc.Register(context.Background(), tt.req)
			var failure *validation.Failure
			if !errors.As(err, &failure) {
				t.Fatalf("expected validation failure, got %v", err)
			}
			if failure.Rule.Name != tt.rule {
				t.Fatalf("expected rule %s, got %s", tt.rule, failure.Rule.Name)
			}
			if repo.calls != 0 {
				t.Fatalf("expected no insert attempts, got %d", repo.calls)
			}
		})
	}
}

func TestRegisterWrapsStorageFailure(t *testing.T) {
	storeErr := errors.New("disk full")
	repo := newFakeUserRepo()
	repo.createErr = storeErr
	svc := newTestService(repo)

	_, err := svc.Register(context.Background(), juan())
	if !errors.Is(err, storeErr) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
	if errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("storage fault must not look like a duplicate")
	}
}

func TestRegisterConcurrentSameEmail(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestService(repo)

	const workers = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), juan())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, repository.ErrDuplicateEmail):
				duplicates++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if successes != 1 || duplicates != workers-1 {
		t.Fatalf("expected 1 success and %d duplicates, got %d/%d", workers-1, successes, duplicates)
	}
}
