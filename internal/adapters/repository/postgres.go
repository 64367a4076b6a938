package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/locasite/locasite/internal/core/domain"
	"github.com/locasite/locasite/internal/infrastructure/metrics"
)

// PostgresRepository implements the reservation, domain, business and API
// key repositories using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates and returns a new PostgresRepository instance.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ReportPoolMetrics publishes the current connection-pool gauge. The server
// binary calls it on a timer so the gauge tracks the live pool.
func (r *PostgresRepository) ReportPoolMetrics() {
	metrics.DBConnectionsActive.Set(float64(r.db.Stats().OpenConnections))
}

// Claim inserts a reservation row for res.Subdomain. The lazy-expiry rule is
// folded into a single conditional upsert: the insert also succeeds when the
// existing row is a temporary reservation whose expiry has passed, in which
// case the row is overwritten. Exactly one of any number of concurrent
// claims for the same string can succeed; the rest see no returned row and
// get domain.ErrSubdomainUnavailable.
func (r *PostgresRepository) Claim(ctx context.Context, res *domain.SubdomainReservation) error {
	query := `INSERT INTO subdomain_reservations (id, subdomain, status, domain_id, expires_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (subdomain) DO UPDATE
	          SET id = EXCLUDED.id, status = EXCLUDED.status, domain_id = EXCLUDED.domain_id,
	              expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at
	          WHERE subdomain_reservations.status = 'reserved'
	            AND subdomain_reservations.expires_at < $6
	          RETURNING id`

	var id string
	errRow := r.db.QueryRowContext(ctx, query,
		res.ID, res.Subdomain, string(res.Status), res.DomainID, res.ExpiresAt, res.CreatedAt, res.UpdatedAt).Scan(&id)
	if errors.Is(errRow, sql.ErrNoRows) {
		return domain.ErrSubdomainUnavailable
	}
	return errRow
}

// Confirm flips a live temporary reservation to active and binds it to
// domainID. Calling it again with the same domainID is a no-op success; an
// expired or deleted reservation reports domain.ErrNotFound.
func (r *PostgresRepository) Confirm(ctx context.Context, reservationID string, domainID string) error {
	now := time.Now()
	query := `UPDATE subdomain_reservations
	          SET status = 'active', domain_id = $2, expires_at = NULL, updated_at = $3
	          WHERE id = $1
	            AND ((status = 'reserved' AND expires_at >= $3)
	              OR (status = 'active' AND domain_id = $2))`

	result, errExec := r.db.ExecContext(ctx, query, reservationID, domainID, now)
	if errExec != nil {
		return errExec
	}
	affected, errRows := result.RowsAffected()
	if errRows != nil {
		return errRows
	}
	if affected == 1 {
		return nil
	}

	// Distinguish a vanished reservation from an active one already bound
	// to a different domain.
	var status string
	var boundDomainID sql.NullString
	errRow := r.db.QueryRowContext(ctx,
		`SELECT status, domain_id FROM subdomain_reservations WHERE id = $1 AND (expires_at IS NULL OR expires_at >= $2)`,
		reservationID, now).Scan(&status, &boundDomainID)
	if errors.Is(errRow, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if errRow != nil {
		return errRow
	}
	return fmt.Errorf("reservation %s is already bound to domain %s", reservationID, boundDomainID.String)
}

func (r *PostgresRepository) DeleteReservation(ctx context.Context, reservationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM subdomain_reservations WHERE id = $1`, reservationID)
	return err
}

func (r *PostgresRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.SubdomainReservation, error) {
	query := `SELECT id, subdomain, status, domain_id, expires_at, created_at, updated_at
	          FROM subdomain_reservations WHERE subdomain = $1`
	var res domain.SubdomainReservation
	var status string
	var domainID sql.NullString
	var expiresAt sql.NullTime
	errRow := r.db.QueryRowContext(ctx, query, subdomain).Scan(
		&res.ID, &res.Subdomain, &status, &domainID, &expiresAt, &res.CreatedAt, &res.UpdatedAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	res.Status = domain.ReservationStatus(status)
	if domainID.Valid {
		res.DomainID = &domainID.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		res.ExpiresAt = &t
	}
	return &res, nil
}

// DeleteExpired reaps temporary reservations past their expiry and returns
// the reaped subdomains. Active rows never match regardless of age.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`DELETE FROM subdomain_reservations WHERE status = 'reserved' AND expires_at < $1
		 RETURNING subdomain`, now)
	if err != nil {
		return nil, err
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var reaped []string
	for rows.Next() {
		var subdomain string
		if err := rows.Scan(&subdomain); err != nil {
			return nil, err
		}
		reaped = append(reaped, subdomain)
	}
	return reaped, rows.Err()
}

func (r *PostgresRepository) CreateDomain(ctx context.Context, d *domain.Domain) error {
	query := `INSERT INTO site_domains (id, business_id, subdomain, custom_domain, is_verified,
	              provider_domain_id, apex_name, ssl_status, ssl_provider, verification_token, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.BusinessID, d.Subdomain, d.CustomDomain, d.IsVerified,
		d.ProviderDomainID, d.ApexName, sslStatusValue(d.SSLStatus), d.SSLProvider,
		d.VerificationToken, d.CreatedAt, d.UpdatedAt)
	return err
}

const domainColumns = `id, business_id, subdomain, custom_domain, is_verified,
	provider_domain_id, apex_name, ssl_status, ssl_provider, verification_token, created_at, updated_at`

func (r *PostgresRepository) GetDomain(ctx context.Context, id string) (*domain.Domain, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+domainColumns+` FROM site_domains WHERE id = $1`, id)
	return scanDomain(row)
}

func (r *PostgresRepository) GetDomainByBusiness(ctx context.Context, businessID string) (*domain.Domain, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+domainColumns+` FROM site_domains WHERE business_id = $1`, businessID)
	return scanDomain(row)
}

func (r *PostgresRepository) UpdateDomain(ctx context.Context, d *domain.Domain) error {
	query := `UPDATE site_domains
	          SET custom_domain = $2, is_verified = $3, provider_domain_id = $4, apex_name = $5,
	              ssl_status = $6, ssl_provider = $7, verification_token = $8, updated_at = $9
	          WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.CustomDomain, d.IsVerified, d.ProviderDomainID, d.ApexName,
		sslStatusValue(d.SSLStatus), d.SSLProvider, d.VerificationToken, d.UpdatedAt)
	return err
}

func (r *PostgresRepository) DeleteDomain(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM site_domains WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) CreateBusiness(ctx context.Context, b *domain.Business) error {
	draft, errDraft := json.Marshal(b.Draft)
	if errDraft != nil {
		return errDraft
	}
	var published []byte
	if b.Published != nil {
		var errPub error
		published, errPub = json.Marshal(b.Published)
		if errPub != nil {
			return errPub
		}
	}
	query := `INSERT INTO businesses (id, owner_id, draft_content, published_content, is_published, published_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.OwnerID, draft, nullableBytes(published), b.IsPublished, b.PublishedAt, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *PostgresRepository) GetBusiness(ctx context.Context, id string) (*domain.Business, error) {
	query := `SELECT id, owner_id, draft_content, published_content, is_published, published_at, created_at, updated_at
	          FROM businesses WHERE id = $1`
	var b domain.Business
	var draft []byte
	var published []byte
	var publishedAt sql.NullTime
	errRow := r.db.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.OwnerID, &draft, &published, &b.IsPublished, &publishedAt, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	if errUnmarshal := json.Unmarshal(draft, &b.Draft); errUnmarshal != nil {
		return nil, fmt.Errorf("corrupt draft content for business %s: %w", id, errUnmarshal)
	}
	if len(published) > 0 {
		var content domain.SiteContent
		if errUnmarshal := json.Unmarshal(published, &content); errUnmarshal != nil {
			return nil, fmt.Errorf("corrupt published content for business %s: %w", id, errUnmarshal)
		}
		b.Published = &content
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		b.PublishedAt = &t
	}
	return &b, nil
}

// SaveDraft overwrites the draft snapshot only. Published content and the
// publish flag are deliberately absent from the statement.
func (r *PostgresRepository) SaveDraft(ctx context.Context, businessID string, draft domain.SiteContent) error {
	data, errMarshal := json.Marshal(draft)
	if errMarshal != nil {
		return errMarshal
	}
	result, errExec := r.db.ExecContext(ctx,
		`UPDATE businesses SET draft_content = $2, updated_at = $3 WHERE id = $1`,
		businessID, data, time.Now())
	if errExec != nil {
		return errExec
	}
	return requireAffected(result, businessID)
}

// Publish copies draft_content into published_content inside one UPDATE, so
// readers never observe a half-published site.
func (r *PostgresRepository) Publish(ctx context.Context, businessID string, at time.Time) error {
	result, errExec := r.db.ExecContext(ctx,
		`UPDATE businesses
		 SET published_content = draft_content, is_published = TRUE, published_at = $2, updated_at = $2
		 WHERE id = $1`,
		businessID, at)
	if errExec != nil {
		return errExec
	}
	return requireAffected(result, businessID)
}

func (r *PostgresRepository) SetPublished(ctx context.Context, businessID string, published bool) error {
	result, errExec := r.db.ExecContext(ctx,
		`UPDATE businesses SET is_published = $2, updated_at = $3 WHERE id = $1`,
		businessID, published, time.Now())
	if errExec != nil {
		return errExec
	}
	return requireAffected(result, businessID)
}

func (r *PostgresRepository) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	query := `INSERT INTO api_keys (id, owner_id, name, key_hash, key_prefix, role, active, created_at, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		key.ID, key.OwnerID, key.Name, key.KeyHash, key.KeyPrefix, string(key.Role), key.Active, key.CreatedAt, key.ExpiresAt)
	return err
}

func (r *PostgresRepository) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	query := `SELECT id, owner_id, name, key_hash, key_prefix, role, active, created_at, expires_at
	          FROM api_keys WHERE key_hash = $1`
	var key domain.APIKey
	var role string
	var expiresAt sql.NullTime
	errRow := r.db.QueryRowContext(ctx, query, keyHash).Scan(
		&key.ID, &key.OwnerID, &key.Name, &key.KeyHash, &key.KeyPrefix, &role, &key.Active, &key.CreatedAt, &expiresAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	key.Role = domain.Role(role)
	if expiresAt.Valid {
		t := expiresAt.Time
		key.ExpiresAt = &t
	}
	return &key, nil
}

func (r *PostgresRepository) ListAPIKeys(ctx context.Context, ownerID string) ([]domain.APIKey, error) {
	query := `SELECT id, owner_id, name, key_prefix, role, active, created_at, expires_at
	          FROM api_keys WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, errQuery := r.db.QueryContext(ctx, query, ownerID)
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var keys []domain.APIKey
	for rows.Next() {
		var key domain.APIKey
		var role string
		var expiresAt sql.NullTime
		if errScan := rows.Scan(&key.ID, &key.OwnerID, &key.Name, &key.KeyPrefix, &role, &key.Active, &key.CreatedAt, &expiresAt); errScan != nil {
			return nil, errScan
		}
		key.Role = domain.Role(role)
		if expiresAt.Valid {
			t := expiresAt.Time
			key.ExpiresAt = &t
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (r *PostgresRepository) RevokeAPIKey(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET active = FALSE WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func scanDomain(row *sql.Row) (*domain.Domain, error) {
	var d domain.Domain
	var customDomain, providerDomainID, apexName, sslStatus, sslProvider sql.NullString
	errRow := row.Scan(&d.ID, &d.BusinessID, &d.Subdomain, &customDomain, &d.IsVerified,
		&providerDomainID, &apexName, &sslStatus, &sslProvider, &d.VerificationToken, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(errRow, sql.ErrNoRows) {
		return nil, nil
	}
	if errRow != nil {
		return nil, errRow
	}
	if customDomain.Valid {
		d.CustomDomain = &customDomain.String
	}
	if providerDomainID.Valid {
		d.ProviderDomainID = &providerDomainID.String
	}
	if apexName.Valid {
		d.ApexName = &apexName.String
	}
	if sslStatus.Valid {
		status := domain.SSLStatus(sslStatus.String)
		d.SSLStatus = &status
	}
	if sslProvider.Valid {
		d.SSLProvider = &sslProvider.String
	}
	return &d, nil
}

func sslStatusValue(s *domain.SSLStatus) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func requireAffected(result sql.Result, businessID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("business %s: %w", businessID, domain.ErrNotFound)
	}
	return nil
}
