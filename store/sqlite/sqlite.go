/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  Stores every administrative record the console manages: beneficiaries,
  schemes (with their distribution templates), applications (with their
  decided timeline and recurring config), donors, projects, users,
  master-data workflow configs, and the per-phase disbursement rows created
  on approval.

SCHEMA NOTES:
  - Calendar dates are TEXT in ISO YYYY-MM-DD form
  - Timestamps are TEXT in RFC3339
  - Structured values (templates, timelines, recurring configs, workflow
    configs) are stored as JSON documents; the factory and grants packages
    own their shape
  - Record ids are UUIDs, generated on first save when the caller leaves
    them empty

CONCURRENCY:
  sync.RWMutex around writes, WAL mode for readers. With PostgreSQL the
  database would carry this instead; the access patterns stay the same.

USAGE:
  store, err := sqlite.New("./data/grants.db")   // or ":memory:"
  if err != nil { ... }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const (
	isoDate = "2006-01-02"
)

// Store implements persistence for all console records.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS beneficiaries (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mobile TEXT NOT NULL,
		email TEXT,
		address TEXT,
		district TEXT,
		state TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_beneficiaries_mobile
		ON beneficiaries(mobile);

	CREATE TABLE IF NOT EXISTS donors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		donor_id TEXT,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_donor
		ON projects(donor_id);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		mobile TEXT,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS schemes (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		donor_id TEXT,
		project_id TEXT,
		max_amount INTEGER NOT NULL DEFAULT 0,
		template_json TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_schemes_project
		ON schemes(project_id);

	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		beneficiary_id TEXT NOT NULL,
		scheme_id TEXT NOT NULL,
		requested_amount INTEGER NOT NULL,
		approved_amount INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		comments TEXT,
		timeline_json TEXT,
		recurring_json TEXT,
		decided_by TEXT,
		decided_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_applications_status
		ON applications(status);
	CREATE INDEX IF NOT EXISTS idx_applications_beneficiary
		ON applications(beneficiary_id);
	CREATE INDEX IF NOT EXISTS idx_applications_scheme
		ON applications(scheme_id);

	-- Workflow / master-data configuration records. kind groups records
	-- (e.g. "approval_workflow", "document_checklist"); config_json is
	-- owned by whoever consumes the kind.
	CREATE TABLE IF NOT EXISTS master_configs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		config_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_master_configs_kind
		ON master_configs(kind);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_master_configs_kind_name
		ON master_configs(kind, name);

	-- One row per approved phase. The due-date job flips scheduled rows to
	-- 'due'; payment confirmation flips them to 'paid'.
	CREATE TABLE IF NOT EXISTS disbursements (
		id TEXT PRIMARY KEY,
		application_id TEXT NOT NULL,
		phase_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		percentage INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		due_date TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		paid_at TEXT,
		created_at TEXT NOT NULL,
		UNIQUE(application_id, phase_id)
	);

	CREATE INDEX IF NOT EXISTS idx_disbursements_application
		ON disbursements(application_id);
	CREATE INDEX IF NOT EXISTS idx_disbursements_status_due
		ON disbursements(status, due_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD TYPES
// =============================================================================

type Beneficiary struct {
	ID        string
	Name      string
	Mobile    string
	Email     string
	Address   string
	District  string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Donor struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

type Project struct {
	ID          string
	Name        string
	DonorID     string
	Description string
	CreatedAt   time.Time
}

type User struct {
	ID        string
	Name      string
	Email     string
	Mobile    string
	Role      string
	CreatedAt time.Time
}

type Scheme struct {
	ID           string
	Name         string
	Description  string
	DonorID      string
	ProjectID    string
	MaxAmount    int64
	TemplateJSON string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Application struct {
	ID              string
	BeneficiaryID   string
	SchemeID        string
	RequestedAmount int64
	ApprovedAmount  int64
	Status          string
	Comments        string
	TimelineJSON    string
	RecurringJSON   string
	DecidedBy       string
	DecidedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type MasterConfig struct {
	ID         string
	Kind       string
	Name       string
	ConfigJSON string
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisbursementStatus values for Disbursement.Status.
const (
	DisbursementScheduled = "scheduled"
	DisbursementDue       = "due"
	DisbursementPaid      = "paid"
)

type Disbursement struct {
	ID            string
	ApplicationID string
	PhaseID       int
	Description   string
	Percentage    int
	Amount        int64
	DueDate       time.Time
	Status        string
	PaidAt        *time.Time
	CreatedAt     time.Time
}

func ensureID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

// =============================================================================
// BENEFICIARIES
// =============================================================================

func (s *Store) SaveBeneficiary(ctx context.Context, b Beneficiary) (Beneficiary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.ID = ensureID(b.ID)
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO beneficiaries (id, name, mobile, email, address, district, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mobile = excluded.mobile,
			email = excluded.email,
			address = excluded.address,
			district = excluded.district,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		b.ID, b.Name, b.Mobile, b.Email, b.Address, b.District, b.State,
		b.CreatedAt.Format(time.RFC3339), b.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return Beneficiary{}, fmt.Errorf("failed to save beneficiary: %w", err)
	}
	return b, nil
}

func (s *Store) GetBeneficiary(ctx context.Context, id string) (*Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, mobile, email, address, district, state, created_at, updated_at
		FROM beneficiaries WHERE id = ?`, id)

	var b Beneficiary
	var email, address, district, state sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&b.ID, &b.Name, &b.Mobile, &email, &address, &district, &state, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}
	b.Email, b.Address, b.District, b.State = email.String, address.String, district.String, state.String
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &b, nil
}

func (s *Store) ListBeneficiaries(ctx context.Context) ([]Beneficiary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, mobile, email, address, district, state, created_at, updated_at
		FROM beneficiaries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list beneficiaries: %w", err)
	}
	defer rows.Close()

	var out []Beneficiary
	for rows.Next() {
		var b Beneficiary
		var email, address, district, state sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&b.ID, &b.Name, &b.Mobile, &email, &address, &district, &state, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		b.Email, b.Address, b.District, b.State = email.String, address.String, district.String, state.String
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

// =============================================================================
// DONORS / PROJECTS / USERS
// =============================================================================

func (s *Store) SaveDonor(ctx context.Context, d Donor) (Donor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = ensureID(d.ID)
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO donors (id, name, email, phone, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email, phone = excluded.phone`,
		d.ID, d.Name, d.Email, d.Phone, d.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Donor{}, fmt.Errorf("failed to save donor: %w", err)
	}
	return d, nil
}

func (s *Store) GetDonor(ctx context.Context, id string) (*Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, created_at FROM donors WHERE id = ?`, id)
	var d Donor
	var email, phone sql.NullString
	var createdAt string
	err := row.Scan(&d.ID, &d.Name, &email, &phone, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get donor: %w", err)
	}
	d.Email, d.Phone = email.String, phone.String
	d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &d, nil
}

func (s *Store) ListDonors(ctx context.Context) ([]Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, phone, created_at FROM donors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list donors: %w", err)
	}
	defer rows.Close()

	var out []Donor
	for rows.Next() {
		var d Donor
		var email, phone sql.NullString
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Name, &email, &phone, &createdAt); err != nil {
			return nil, err
		}
		d.Email, d.Phone = email.String, phone.String
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) SaveProject(ctx context.Context, p Project) (Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = ensureID(p.ID)
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, donor_id, description, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, donor_id = excluded.donor_id,
			description = excluded.description`,
		p.ID, p.Name, p.DonorID, p.Description, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Project{}, fmt.Errorf("failed to save project: %w", err)
	}
	return p, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, donor_id, description, created_at FROM projects WHERE id = ?`, id)
	var p Project
	var donorID, desc sql.NullString
	var createdAt string
	err := row.Scan(&p.ID, &p.Name, &donorID, &desc, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	p.DonorID, p.Description = donorID.String, desc.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, donor_id, description, created_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []Project
	for rows.Next() {
		var p Project
		var donorID, desc sql.NullString
		var createdAt string
		if err := rows.Scan(&p.ID, &p.Name, &donorID, &desc, &createdAt); err != nil {
			return nil, err
		}
		p.DonorID, p.Description = donorID.String, desc.String
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SaveUser(ctx context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.ID = ensureID(u.ID)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, mobile, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email,
			mobile = excluded.mobile, role = excluded.role`,
		u.ID, u.Name, u.Email, u.Mobile, u.Role, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return User{}, fmt.Errorf("failed to save user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, mobile, role, created_at FROM users WHERE id = ?`, id)
	var u User
	var mobile sql.NullString
	var createdAt string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &mobile, &u.Role, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.Mobile = mobile.String
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, mobile, role, created_at FROM users ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		var mobile sql.NullString
		var createdAt string
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &mobile, &u.Role, &createdAt); err != nil {
			return nil, err
		}
		u.Mobile = mobile.String
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, u)
	}
	return out, rows.Err()
}

// =============================================================================
// SCHEMES
// =============================================================================

func (s *Store) SaveScheme(ctx context.Context, sc Scheme) (Scheme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc.ID = ensureID(sc.ID)
	now := time.Now().UTC()
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = now
	}
	sc.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schemes (id, name, description, donor_id, project_id, max_amount, template_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			donor_id = excluded.donor_id,
			project_id = excluded.project_id,
			max_amount = excluded.max_amount,
			template_json = excluded.template_json,
			updated_at = excluded.updated_at`,
		sc.ID, sc.Name, sc.Description, sc.DonorID, sc.ProjectID, sc.MaxAmount, sc.TemplateJSON,
		sc.CreatedAt.Format(time.RFC3339), sc.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return Scheme{}, fmt.Errorf("failed to save scheme: %w", err)
	}
	return sc, nil
}

func (s *Store) GetScheme(ctx context.Context, id string) (*Scheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, donor_id, project_id, max_amount, template_json, created_at, updated_at
		FROM schemes WHERE id = ?`, id)

	sc, err := scanScheme(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheme: %w", err)
	}
	return &sc, nil
}

func (s *Store) ListSchemes(ctx context.Context) ([]Scheme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, donor_id, project_id, max_amount, template_json, created_at, updated_at
		FROM schemes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemes: %w", err)
	}
	defer rows.Close()

	var out []Scheme
	for rows.Next() {
		sc, err := scanScheme(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func scanScheme(scan func(...any) error) (Scheme, error) {
	var sc Scheme
	var desc, donorID, projectID, templateJSON sql.NullString
	var createdAt, updatedAt string
	err := scan(&sc.ID, &sc.Name, &desc, &donorID, &projectID, &sc.MaxAmount, &templateJSON, &createdAt, &updatedAt)
	if err != nil {
		return sc, err
	}
	sc.Description, sc.DonorID, sc.ProjectID = desc.String, donorID.String, projectID.String
	sc.TemplateJSON = templateJSON.String
	sc.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sc.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return sc, nil
}

// =============================================================================
// APPLICATIONS
// =============================================================================

// execer is satisfied by both *sql.DB and *sql.Tx so write helpers can run
// standalone or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) SaveApplication(ctx context.Context, a Application) (Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return upsertApplication(ctx, s.db, a)
}

func upsertApplication(ctx context.Context, ex execer, a Application) (Application, error) {
	a.ID = ensureID(a.ID)
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = "pending"
	}

	var decidedAt any
	if a.DecidedAt != nil {
		decidedAt = a.DecidedAt.Format(time.RFC3339)
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO applications (id, beneficiary_id, scheme_id, requested_amount, approved_amount,
			status, comments, timeline_json, recurring_json, decided_by, decided_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			beneficiary_id = excluded.beneficiary_id,
			scheme_id = excluded.scheme_id,
			requested_amount = excluded.requested_amount,
			approved_amount = excluded.approved_amount,
			status = excluded.status,
			comments = excluded.comments,
			timeline_json = excluded.timeline_json,
			recurring_json = excluded.recurring_json,
			decided_by = excluded.decided_by,
			decided_at = excluded.decided_at,
			updated_at = excluded.updated_at`,
		a.ID, a.BeneficiaryID, a.SchemeID, a.RequestedAmount, a.ApprovedAmount,
		a.Status, a.Comments, a.TimelineJSON, a.RecurringJSON, a.DecidedBy, decidedAt,
		a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return Application{}, fmt.Errorf("failed to save application: %w", err)
	}
	return a, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, beneficiary_id, scheme_id, requested_amount, approved_amount,
			status, comments, timeline_json, recurring_json, decided_by, decided_at, created_at, updated_at
		FROM applications WHERE id = ?`, id)

	a, err := scanApplication(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &a, nil
}

// ListApplications returns applications, newest first, optionally filtered
// by status.
func (s *Store) ListApplications(ctx context.Context, status string) ([]Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, beneficiary_id, scheme_id, requested_amount, approved_amount,
			status, comments, timeline_json, recurring_json, decided_by, decided_at, created_at, updated_at
		FROM applications`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	var out []Application
	for rows.Next() {
		a, err := scanApplication(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanApplication(scan func(...any) error) (Application, error) {
	var a Application
	var comments, timelineJSON, recurringJSON, decidedBy, decidedAt sql.NullString
	var createdAt, updatedAt string
	err := scan(&a.ID, &a.BeneficiaryID, &a.SchemeID, &a.RequestedAmount, &a.ApprovedAmount,
		&a.Status, &comments, &timelineJSON, &recurringJSON, &decidedBy, &decidedAt, &createdAt, &updatedAt)
	if err != nil {
		return a, err
	}
	a.Comments = comments.String
	a.TimelineJSON = timelineJSON.String
	a.RecurringJSON = recurringJSON.String
	a.DecidedBy = decidedBy.String
	if decidedAt.Valid && decidedAt.String != "" {
		t, _ := time.Parse(time.RFC3339, decidedAt.String)
		a.DecidedAt = &t
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return a, nil
}

// =============================================================================
// MASTER-DATA CONFIGS
// =============================================================================

// SaveMasterConfig upserts a config record. The record identity is
// (kind, name); saving an existing pair keeps its id and bumps the stored
// version. A caller-supplied id targets that row directly, which allows
// renames. Returns the row as persisted.
func (s *Store) SaveMasterConfig(ctx context.Context, m MasterConfig) (MasterConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	query := `SELECT id, version, created_at FROM master_configs WHERE kind = ? AND name = ?`
	args := []any{m.Kind, m.Name}
	if m.ID != "" {
		query = `SELECT id, version, created_at FROM master_configs WHERE id = ?`
		args = []any{m.ID}
	}

	var existingVersion int
	var existingID, createdAt string
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&existingID, &existingVersion, &createdAt)
	if err != nil && err != sql.ErrNoRows {
		return MasterConfig{}, fmt.Errorf("failed to save master config: %w", err)
	}

	if err == sql.ErrNoRows {
		m.ID = ensureID(m.ID)
		m.Version = 1
		m.CreatedAt = now
		m.UpdatedAt = now
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO master_configs (id, kind, name, config_json, version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.Kind, m.Name, m.ConfigJSON, m.Version,
			now.Format(time.RFC3339), now.Format(time.RFC3339)); err != nil {
			return MasterConfig{}, fmt.Errorf("failed to save master config: %w", err)
		}
		return m, nil
	}

	m.ID = existingID
	m.Version = existingVersion + 1
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt = now
	if _, err := s.db.ExecContext(ctx, `
		UPDATE master_configs
		SET kind = ?, name = ?, config_json = ?, version = ?, updated_at = ?
		WHERE id = ?`,
		m.Kind, m.Name, m.ConfigJSON, m.Version,
		now.Format(time.RFC3339), m.ID); err != nil {
		return MasterConfig{}, fmt.Errorf("failed to save master config: %w", err)
	}
	return m, nil
}

func (s *Store) GetMasterConfig(ctx context.Context, id string) (*MasterConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, name, config_json, version, created_at, updated_at
		FROM master_configs WHERE id = ?`, id)

	var m MasterConfig
	var createdAt, updatedAt string
	err := row.Scan(&m.ID, &m.Kind, &m.Name, &m.ConfigJSON, &m.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get master config: %w", err)
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &m, nil
}

// ListMasterConfigs returns configs, optionally filtered by kind.
func (s *Store) ListMasterConfigs(ctx context.Context, kind string) ([]MasterConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, kind, name, config_json, version, created_at, updated_at FROM master_configs`
	args := []any{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY kind, name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list master configs: %w", err)
	}
	defer rows.Close()

	var out []MasterConfig
	for rows.Next() {
		var m MasterConfig
		var createdAt, updatedAt string
		if err := rows.Scan(&m.ID, &m.Kind, &m.Name, &m.ConfigJSON, &m.Version, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, m)
	}
	return out, rows.Err()
}

// =============================================================================
// DISBURSEMENTS
// =============================================================================

// SaveDisbursements writes all phase rows for an application atomically,
// replacing any previous rows for the same application.
func (s *Store) SaveDisbursements(ctx context.Context, applicationID string, ds []Disbursement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceDisbursements(ctx, tx, applicationID, ds); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceDisbursements(ctx context.Context, ex execer, applicationID string, ds []Disbursement) error {
	if _, err := ex.ExecContext(ctx,
		`DELETE FROM disbursements WHERE application_id = ?`, applicationID); err != nil {
		return fmt.Errorf("failed to clear disbursements: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, d := range ds {
		id := ensureID(d.ID)
		status := d.Status
		if status == "" {
			status = DisbursementScheduled
		}
		if _, err := ex.ExecContext(ctx, `
			INSERT INTO disbursements (id, application_id, phase_id, description, percentage, amount, due_date, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, applicationID, d.PhaseID, d.Description, d.Percentage, d.Amount,
			d.DueDate.Format(isoDate), status, now); err != nil {
			return fmt.Errorf("failed to insert disbursement: %w", err)
		}
	}
	return nil
}

// SaveDecision persists a decided application together with its payout rows
// in one transaction. Either both land or neither does; a failed decision
// never leaves an approved application without rows.
func (s *Store) SaveDecision(ctx context.Context, a Application, ds []Disbursement) (Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Application{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	saved, err := upsertApplication(ctx, tx, a)
	if err != nil {
		return Application{}, err
	}
	if err := replaceDisbursements(ctx, tx, saved.ID, ds); err != nil {
		return Application{}, err
	}
	if err := tx.Commit(); err != nil {
		return Application{}, fmt.Errorf("failed to commit decision: %w", err)
	}
	return saved, nil
}

// ListDisbursements returns disbursement rows filtered by application and/or
// status (either may be empty), ordered by due date.
func (s *Store) ListDisbursements(ctx context.Context, applicationID, status string) ([]Disbursement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, application_id, phase_id, description, percentage, amount, due_date, status, paid_at, created_at
		FROM disbursements`
	var clauses []string
	var args []any
	if applicationID != "" {
		clauses = append(clauses, "application_id = ?")
		args = append(args, applicationID)
	}
	if status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, status)
	}
	for i, c := range clauses {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += ` ORDER BY due_date, phase_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list disbursements: %w", err)
	}
	defer rows.Close()

	var out []Disbursement
	for rows.Next() {
		var d Disbursement
		var dueDate, createdAt string
		var paidAt sql.NullString
		if err := rows.Scan(&d.ID, &d.ApplicationID, &d.PhaseID, &d.Description, &d.Percentage,
			&d.Amount, &dueDate, &d.Status, &paidAt, &createdAt); err != nil {
			return nil, err
		}
		d.DueDate, _ = time.Parse(isoDate, dueDate)
		if paidAt.Valid && paidAt.String != "" {
			t, _ := time.Parse(time.RFC3339, paidAt.String)
			d.PaidAt = &t
		}
		d.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkDisbursementsDue flips scheduled rows with due_date <= asOf to 'due'.
// Returns the number of rows updated. Called by the scheduler.
func (s *Store) MarkDisbursementsDue(ctx context.Context, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE disbursements SET status = ?
		WHERE status = ? AND due_date <= ?`,
		DisbursementDue, DisbursementScheduled, asOf.Format(isoDate))
	if err != nil {
		return 0, fmt.Errorf("failed to mark disbursements due: %w", err)
	}
	return res.RowsAffected()
}

// MarkDisbursementPaid records payment of one disbursement row.
func (s *Store) MarkDisbursementPaid(ctx context.Context, id string, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE disbursements SET status = ?, paid_at = ?
		WHERE id = ? AND status != ?`,
		DisbursementPaid, paidAt.UTC().Format(time.RFC3339), id, DisbursementPaid)
	if err != nil {
		return fmt.Errorf("failed to mark disbursement paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Reset clears all tables. Used by tests and the dev reset endpoint.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"disbursements", "applications", "schemes", "master_configs", "users", "projects", "donors", "beneficiaries"}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to reset %s: %w", t, err)
		}
	}
	return nil
}
