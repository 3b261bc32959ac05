package prospect

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// SQLProspectRepository reads candidates from an external CRM database.
// Expected table:
//
//	prospects(id, user_id, linkedin_id, first_name, last_name, name, title,
//	          company, headline, location, profile_url, mutual_connection, created_at)
//
// MySQL DSNs need parseTime=true so created_at scans into time.Time.
type SQLProspectRepository struct {
	driver string // "postgres" or "mysql"
	db     *sql.DB
}

func NewSQLProspectRepository(ctx context.Context, driver, dsn string) (*SQLProspectRepository, error) {
	if driver == "postgresql" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "mysql" {
		return nil, fmt.Errorf("unsupported prospect driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open prospect database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping prospect database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	return &SQLProspectRepository{driver: driver, db: db}, nil
}

func (r *SQLProspectRepository) Close() error {
	return r.db.Close()
}

func (r *SQLProspectRepository) Create(ctx context.Context, p *Prospect) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	query := r.rebind(`INSERT INTO prospects
		(id, user_id, linkedin_id, first_name, last_name, name, title, company, headline, location, profile_url, mutual_connection, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.UserID, p.LinkedInID, p.FirstName, p.LastName, p.Name, p.Title,
		p.Company, p.Headline, p.Location, p.ProfileURL, p.MutualConnection, p.CreatedAt)
	return err
}

func (r *SQLProspectRepository) Page(ctx context.Context, q PageQuery) ([]Prospect, error) {
	query, args := r.pageQuery(q)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prospects: %w", err)
	}
	defer rows.Close()

	prospects := []Prospect{}
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, p)
	}
	return prospects, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProspect reads one pageQuery row. Every column besides id, user_id and
// created_at may be NULL in a CRM table.
func scanProspect(row rowScanner) (Prospect, error) {
	var p Prospect
	var linkedinID, first, last, name, title, company, headline, location, profileURL, mutual sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &linkedinID, &first, &last, &name, &title,
		&company, &headline, &location, &profileURL, &mutual, &p.CreatedAt); err != nil {
		return Prospect{}, err
	}
	p.LinkedInID = linkedinID.String
	p.FirstName = first.String
	p.LastName = last.String
	p.Name = name.String
	p.Title = title.String
	p.Company = company.String
	p.Headline = headline.String
	p.Location = location.String
	p.ProfileURL = profileURL.String
	p.MutualConnection = mutual.String
	return p, nil
}

func (r *SQLProspectRepository) pageQuery(q PageQuery) (string, []interface{}) {
	query := `SELECT id, user_id, linkedin_id, first_name, last_name, name, title, company, headline, location, profile_url, mutual_connection, created_at
		FROM prospects WHERE user_id = ?`
	args := []interface{}{q.UserID}

	if q.After != nil {
		query += ` AND (created_at > ? OR (created_at = ? AND id > ?))`
		args = append(args, q.After.CreatedAt, q.After.CreatedAt, q.After.ID)
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT ?`
	args = append(args, q.Limit)

	return r.rebind(query), args
}

// rebind turns ? placeholders into $n for postgres.
func (r *SQLProspectRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
