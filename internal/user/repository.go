package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

// Repository fornece acesso ao armazenamento de usuários e roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de usuários.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EmailDisponivel devolve ErrEmailEmUso quando o e-mail já está cadastrado.
func (r *Repository) EmailDisponivel(ctx context.Context, email string) error {
	const query = `SELECT 1 FROM usuarios WHERE email = $1`

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var one int
	err := r.pool.QueryRow(ctx, query, normalizeEmail(email)).Scan(&one)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	return ErrEmailEmUso
}

// RoleIDsByName resolve os identificadores das roles pedidas.
// Devolve ErrRoleNaoEncontrada quando qualquer nome está ausente; outras
// falhas de consulta são propagadas como estão.
func (r *Repository) RoleIDsByName(ctx context.Context, names []string) ([]uuid.UUID, error) {
	const query = `SELECT id FROM roles WHERE nome = ANY($1)`

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if len(ids) < len(names) {
		return nil, ErrRoleNaoEncontrada
	}
	return ids, nil
}

// CreateTx insere a conta dentro da transação do fluxo de provisionamento.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, input CreateInput) (*Usuario, error) {
	const query = `
        INSERT INTO usuarios (nome, email, senha_hash, ativo)
        VALUES ($1, $2, $3, $4)
        RETURNING id, nome, email, senha_hash, ativo, criado_em, atualizado_em
    `

	row := tx.QueryRow(ctx, query,
		strings.TrimSpace(input.Nome),
		normalizeEmail(input.Email),
		input.SenhaHash,
		input.Ativo,
	)
	return scanUsuario(row)
}

// AddRolesTx vincula as roles à conta recém-criada.
func (r *Repository) AddRolesTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, roleIDs []uuid.UUID) error {
	const query = `
        INSERT INTO usuario_roles (usuario_id, role_id)
        VALUES ($1, $2)
        ON CONFLICT DO NOTHING
    `

	for _, roleID := range roleIDs {
		if _, err := tx.Exec(ctx, query, userID, roleID); err != nil {
			return err
		}
	}
	return nil
}

// Update aplica alteração parcial nos campos da conta.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpdateInput) error {
	const query = `
        UPDATE usuarios
        SET nome = COALESCE(NULLIF($2, ''), nome),
            email = COALESCE(NULLIF($3, ''), email),
            senha_hash = COALESCE(NULLIF($4, ''), senha_hash),
            atualizado_em = now()
        WHERE id = $1
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, query, id,
		strings.TrimSpace(input.Nome),
		normalizeEmail(input.Email),
		input.SenhaHash,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAtivo liga/desliga a conta.
func (r *Repository) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	const query = `
        UPDATE usuarios
        SET ativo = $2,
            atualizado_em = now()
        WHERE id = $1
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, query, id, ativo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTx remove os vínculos de role e a conta dentro da transação do
// cascade de exclusão.
func (r *Repository) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM usuario_roles WHERE usuario_id = $1`, id); err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM usuarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUsuario(row pgx.Row) (*Usuario, error) {
	var u Usuario
	if err := row.Scan(&u.ID, &u.Nome, &u.Email, &u.SenhaHash, &u.Ativo, &u.CriadoEm, &u.AtualizadoEm); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
