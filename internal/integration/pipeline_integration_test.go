package integration

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"job-match/internal/config"
	"job-match/internal/database"
	"job-match/internal/database/migration"
	dbpostgres "job-match/internal/database/postgres"
	"job-match/internal/delivery/http/handler"
	"job-match/internal/delivery/http/middleware"
	"job-match/internal/delivery/http/routes"
	"job-match/internal/infrastructure/cache"
	"job-match/internal/pkg/jwt"
	"job-match/internal/repository"
	"job-match/internal/usecase"
	notifyuc "job-match/internal/usecase/notification"
	"job-match/migrations"

	"github.com/gofiber/fiber/v3"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testAccessSecret = "test-access-secret"

type semanticResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type matchItem struct {
	JobID      uuid.UUID `json:"job_id"`
	Title      string    `json:"title"`
	MatchScore int       `json:"match_score"`
	Notified   bool      `json:"notified"`
}

// textProvider embeds known texts to fixed vectors.
type textProvider struct {
	vectors map[string][]float32
}

func (p textProvider) Embed(_ context.Context, text string) ([]float32, error) {
	for marker, v := range p.vectors {
		if strings.Contains(text, marker) {
			return v, nil
		}
	}
	return []float32{0, 0, 1}, nil
}

func (p textProvider) ModelName() string { return "integration-fake" }

type mailbox struct {
	mu   sync.Mutex
	sent []string
}

func (m *mailbox) SendEmail(_ context.Context, to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to)
	return nil
}

func (m *mailbox) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type seededIDs struct {
	jobID   uuid.UUID
	closeID uuid.UUID
	farID   uuid.UUID
}

func TestIntegration_EmbedMatchNotify(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := connectTestDB(t, ctx)
	defer func() { _ = db.Close() }()

	runMigrations(t, ctx, db)
	ensureCollaboratorTables(t, ctx, db)

	seed := seedDummyData(t, ctx, db)
	defer cleanupSeed(t, ctx, db, seed)

	box := &mailbox{}
	matches := repository.NewPostgresJobMatchRepository(db)
	jobs := repository.NewPostgresJobRepository(db)

	worker := notifyuc.NewWorker(notifyuc.WorkerDeps{
		Preferences: repository.NewPostgresPreferenceRepository(db),
		Logs:        repository.NewPostgresNotificationLogRepository(db),
		Matches:     matches,
		Channels:    notifyuc.Channels{Email: box},
	})
	notifier := notifyuc.NewMatchNotifier(notifyuc.MatchNotifierDeps{
		Dispatcher: notifyuc.NewInlineDispatcher(worker, nil),
		Matches:    matches,
		Jobs:       jobs,
		Locker:     cache.FromClient(nil, nil),
	})
	uc := usecase.NewMatchingUsecase(usecase.MatchingDeps{
		Jobs:    jobs,
		Resumes: repository.NewPostgresResumeRepository(db),
		Vectors: repository.NewPostgresVectorRepository(db),
		Matches: matches,
		Provider: textProvider{vectors: map[string][]float32{
			"it-test-backend-job": {1, 0, 0},
			"it-test-close":       {2, 0, 0},
			"it-test-far":         {0, 1, 0},
		}},
		Notifier: notifier,
	})

	for _, userID := range []uuid.UUID{seed.closeID, seed.farID} {
		if _, err := uc.EmbedResume(ctx, userID); err != nil {
			t.Fatalf("embed resume %s: %v", userID, err)
		}
	}

	res, err := uc.EmbedAndMatchJob(ctx, seed.jobID)
	if err != nil {
		t.Fatalf("embed and match job: %v", err)
	}
	if res.EmbeddingDimensions != 3 {
		t.Fatalf("expected 3 dimensions, got %d", res.EmbeddingDimensions)
	}
	if res.MatchCount != 1 {
		t.Fatalf("expected 1 qualifying match, got %d", res.MatchCount)
	}
	if res.NotificationsInline != 1 {
		t.Fatalf("expected 1 inline notification, got %d", res.NotificationsInline)
	}
	if got := box.recipients(); len(got) != 1 || got[0] != "close@it-test.example" {
		t.Fatalf("expected one email to close@it-test.example, got %v", got)
	}

	again, err := uc.EmbedAndMatchJob(ctx, seed.jobID)
	if err != nil {
		t.Fatalf("second embed and match: %v", err)
	}
	if !again.EmbeddingReused {
		t.Fatalf("second pass: expected the stored job embedding to be reused")
	}
	if n := len(box.recipients()); n != 1 {
		t.Fatalf("second pass: expected no new notification, got %d total", n)
	}

	app := newTestFiberApp(t, uc)

	items := callMyMatches(t, app, accessToken(t, seed.closeID))
	if len(items) != 1 {
		t.Fatalf("matches: expected 1 item, got %d", len(items))
	}
	if items[0].JobID != seed.jobID || items[0].MatchScore != 100 || !items[0].Notified {
		t.Fatalf("matches: unexpected item %+v", items[0])
	}
	if items[0].Title != "Backend Engineer it-test-backend-job" {
		t.Fatalf("matches: unexpected title %q", items[0].Title)
	}

	if far := callMyMatches(t, app, accessToken(t, seed.farID)); len(far) != 0 {
		t.Fatalf("matches: expected no items for the far resume, got %d", len(far))
	}
}

func connectTestDB(t *testing.T, ctx context.Context) *dbpostgres.Pool {
	t.Helper()

	host := stringsOrDefault(os.Getenv("JOBMATCH_TEST_DB_HOST"), os.Getenv("DB_HOST"))
	port := stringsOrDefault(os.Getenv("JOBMATCH_TEST_DB_PORT"), os.Getenv("DB_PORT"))
	name := stringsOrDefault(os.Getenv("JOBMATCH_TEST_DB_NAME"), os.Getenv("DB_NAME"))
	user := stringsOrDefault(os.Getenv("JOBMATCH_TEST_DB_USER"), os.Getenv("DB_USER"))
	pass := stringsOrDefault(os.Getenv("JOBMATCH_TEST_DB_PASSWORD"), os.Getenv("DB_PASSWORD"))
	ssl := stringsOrDefault(os.Getenv("JOBMATCH_TEST_DB_SSL_MODE"), os.Getenv("DB_SSL_MODE"))

	if host == "" || port == "" || name == "" || user == "" {
		t.Skip("missing test DB env vars: set JOBMATCH_TEST_DB_HOST/PORT/NAME/USER/PASSWORD (or DB_HOST/DB_PORT/DB_NAME/DB_USER/DB_PASSWORD)")
	}
	if ssl == "" {
		ssl = "disable"
	}

	db, err := dbpostgres.Connect(ctx, config.DatabaseConfig{
		DBHost:     host,
		DBPort:     port,
		DBName:     name,
		DBUser:     user,
		DBPassword: pass,
		DBSSLMode:  ssl,
	})
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

func runMigrations(t *testing.T, ctx context.Context, db *dbpostgres.Pool) {
	t.Helper()

	r := migration.Runner{FS: migrations.FS}
	if _, err := r.Run(ctx, db.SQLDB()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
}

// ensureCollaboratorTables creates minimal versions of the tables owned by
// other services when the test database does not have them.
func ensureCollaboratorTables(t *testing.T, ctx context.Context, db database.DB) {
	t.Helper()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (id UUID PRIMARY KEY, email TEXT)`,
		`CREATE TABLE IF NOT EXISTS resumes (user_id UUID PRIMARY KEY, extracted_text TEXT)`,
		`CREATE TABLE IF NOT EXISTS jobs (id UUID PRIMARY KEY, title TEXT, company TEXT, location TEXT, description TEXT)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(ctx, s); err != nil {
			t.Fatalf("ensure collaborator table: %v", err)
		}
	}
	if err := database.CheckCollaboratorSchema(ctx, db); err != nil {
		t.Fatalf("collaborator schema: %v", err)
	}
}

func seedDummyData(t *testing.T, ctx context.Context, db database.DB) seededIDs {
	t.Helper()

	out := seededIDs{jobID: uuid.New(), closeID: uuid.New(), farID: uuid.New()}

	mustExec(t, ctx, db, `INSERT INTO jobs (id, title, company, location, description) VALUES ($1,$2,$3,$4,$5)`,
		out.jobID, "Backend Engineer it-test-backend-job", "IT Co", "Jakarta", "Go, PostgreSQL, Redis")
	for id, marker := range map[uuid.UUID]string{out.closeID: "close", out.farID: "far"} {
		mustExec(t, ctx, db, `INSERT INTO users (id, email) VALUES ($1,$2)`, id, marker+"@it-test.example")
		mustExec(t, ctx, db, `INSERT INTO resumes (user_id, extracted_text) VALUES ($1,$2)`, id, "resume it-test-"+marker)
	}
	return out
}

func cleanupSeed(t *testing.T, ctx context.Context, db database.DB, seed seededIDs) {
	t.Helper()

	users := []uuid.UUID{seed.closeID, seed.farID}
	for _, id := range users {
		_, _ = db.Exec(ctx, `DELETE FROM notification_logs WHERE recipient_id = $1`, id)
		_, _ = db.Exec(ctx, `DELETE FROM resumes WHERE user_id = $1`, id)
		_, _ = db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		_, _ = db.Exec(ctx, `DELETE FROM embeddings WHERE kind = 'resume' AND owner_id = $1`, id)
	}
	_, _ = db.Exec(ctx, `DELETE FROM job_matches WHERE job_id = $1`, seed.jobID)
	_, _ = db.Exec(ctx, `DELETE FROM embeddings WHERE kind = 'job' AND owner_id = $1`, seed.jobID)
	_, _ = db.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, seed.jobID)
}

func newTestFiberApp(t *testing.T, uc usecase.MatchingUsecase) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{})
	errMw := middleware.NewErrorMiddleware(nil)
	app.Use(errMw.Middleware())

	routes.NewRegistry(
		routes.Handlers{Match: handler.NewMatchHandler(uc)},
		routes.Guards{User: middleware.NewAuthMiddleware(jwt.NewHMACValidator(testAccessSecret)).Middleware()},
	).Register(app)
	return app
}

func accessToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	exp := time.Now().Add(15 * time.Minute)
	c := jwt.Claims{
		UserID:           userID,
		TokenType:        jwt.TokenTypeAccess,
		ExpiredAt:        exp,
		RegisteredClaims: jwtlib.RegisteredClaims{ExpiresAt: jwtlib.NewNumericDate(exp)},
	}
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString([]byte(testAccessSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func callMyMatches(t *testing.T, app *fiber.App, token string) []matchItem {
	t.Helper()

	req := httptest.NewRequest("GET", "/api/v1/users/me/matches", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("matches request error: %v", err)
	}
	defer resp.Body.Close()

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		t.Fatalf("matches decode error: %v", err)
	}
	if sr.Status != 200 {
		t.Fatalf("matches: expected status=200, got %d (message=%s)", sr.Status, sr.Message)
	}

	var items []matchItem
	if err := json.Unmarshal(sr.Data, &items); err != nil {
		t.Fatalf("matches: data unmarshal error: %v", err)
	}
	return items
}

func mustExec(t *testing.T, ctx context.Context, db database.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(ctx, query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func stringsOrDefault(v, def string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
