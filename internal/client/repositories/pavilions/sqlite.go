package pavilions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/dbx"
	"github.com/insubria-survive/survive/internal/models"
)

const selectPavilions = `SELECT codice_padiglione, id_padiglione, descrizione, ora_apertura, ora_chiusura, posizione FROM padiglione`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p models.Pavilion) error {
	var position string
	if p.Position != nil {
		position = p.Position.String()
	}

	query := `INSERT INTO padiglione (codice_padiglione, id_padiglione, descrizione, ora_apertura, ora_chiusura, posizione)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(codice_padiglione) DO UPDATE SET id_padiglione = excluded.id_padiglione,
				descrizione = excluded.descrizione,
				ora_apertura = excluded.ora_apertura,
				ora_chiusura = excluded.ora_chiusura,
				posizione = excluded.posizione`
	_, err := r.db.ExecContext(ctx, query, p.Code, p.ID, p.Description, p.OpensAt, p.ClosesAt, position)
	if err != nil {
		return fmt.Errorf("failed to upsert pavilion %s: %w", p.Code, err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Pavilion, error) {
	rows, err := r.db.QueryContext(ctx, selectPavilions)
	if err != nil {
		return nil, fmt.Errorf("failed to select pavilions: %w", err)
	}
	defer rows.Close()

	var result []models.Pavilion
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pavilions: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByCode(ctx context.Context, code string) (models.Pavilion, error) {
	p, err := scan(r.db.QueryRowContext(ctx, selectPavilions+` WHERE codice_padiglione = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Pavilion{}, common.ErrorNotFound
	}
	return p, err
}

func scan(s interface{ Scan(...any) error }) (models.Pavilion, error) {
	var p models.Pavilion
	var position string
	if err := s.Scan(&p.Code, &p.ID, &p.Description, &p.OpensAt, &p.ClosesAt, &position); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan pavilion: %w", err)
	}
	pos, err := models.ParseGeoPoint(position)
	if err != nil {
		return p, fmt.Errorf("pavilion %s: %w", p.Code, err)
	}
	p.Position = pos
	return p, nil
}
