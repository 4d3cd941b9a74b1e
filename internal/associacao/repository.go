package associacao

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coopcata/plataforma/internal/user"
)

const dbTimeout = 3 * time.Second

const associacaoColumns = `
        a.id, a.cnpj, a.endereco, a.bairro, a.user_id, a.criado_em, a.atualizado_em,
        u.id, u.nome, u.email, u.senha_hash, u.ativo, u.criado_em, u.atualizado_em
`

// Repository fornece acesso ao armazenamento de associações.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de associações.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List devolve todas as associações com a conta vinculada.
func (r *Repository) List(ctx context.Context) ([]Associacao, error) {
	const query = `
        SELECT ` + associacaoColumns + `
        FROM associacoes a
        JOIN usuarios u ON u.id = a.user_id
        ORDER BY a.criado_em DESC
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var associacoes []Associacao
	for rows.Next() {
		a, err := scanAssociacao(rows)
		if err != nil {
			return nil, err
		}
		associacoes = append(associacoes, *a)
	}
	return associacoes, rows.Err()
}

// GetByID busca associação pelo identificador, com a conta vinculada.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Associacao, error) {
	const query = `
        SELECT ` + associacaoColumns + `
        FROM associacoes a
        JOIN usuarios u ON u.id = a.user_id
        WHERE a.id = $1
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanAssociacao(r.pool.QueryRow(ctx, query, id))
}

// GetByUserID busca a associação cuja conta dona é o usuário informado.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Associacao, error) {
	const query = `
        SELECT ` + associacaoColumns + `
        FROM associacoes a
        JOIN usuarios u ON u.id = a.user_id
        WHERE a.user_id = $1
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanAssociacao(r.pool.QueryRow(ctx, query, userID))
}

// ExistsByCnpj devolve ErrCnpjEmUso quando o CNPJ já está cadastrado.
// A verificação é consultiva: o backstop real é a unique constraint.
func (r *Repository) ExistsByCnpj(ctx context.Context, cnpj string) error {
	const query = `SELECT 1 FROM associacoes WHERE cnpj = $1`

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var one int
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(cnpj)).Scan(&one)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	return ErrCnpjEmUso
}

// CreateTx insere a associação dentro da transação do provisionamento.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, input CreateRecord) (*Associacao, error) {
	const query = `
        INSERT INTO associacoes (user_id, cnpj, endereco, bairro)
        VALUES ($1, $2, $3, $4)
        RETURNING id, cnpj, endereco, bairro, user_id, criado_em, atualizado_em
    `

	var a Associacao
	row := tx.QueryRow(ctx, query,
		input.UserID,
		strings.TrimSpace(input.CNPJ),
		strings.TrimSpace(input.Endereco),
		strings.TrimSpace(input.Bairro),
	)
	if err := row.Scan(&a.ID, &a.CNPJ, &a.Endereco, &a.Bairro, &a.UserID, &a.CriadoEm, &a.AtualizadoEm); err != nil {
		return nil, err
	}
	return &a, nil
}

// Update aplica alteração parcial e devolve a linha com a conta vinculada.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpdateRecord) (*Associacao, error) {
	const query = `
        UPDATE associacoes
        SET cnpj = COALESCE(NULLIF($2, ''), cnpj),
            endereco = COALESCE(NULLIF($3, ''), endereco),
            bairro = COALESCE(NULLIF($4, ''), bairro),
            atualizado_em = now()
        WHERE id = $1
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, query, id,
		strings.TrimSpace(input.CNPJ),
		strings.TrimSpace(input.Endereco),
		strings.TrimSpace(input.Bairro),
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// DeleteTx remove a associação dentro da transação do cascade.
func (r *Repository) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM associacoes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAssociacao(row pgx.Row) (*Associacao, error) {
	var (
		a Associacao
		u user.Usuario
	)

	err := row.Scan(
		&a.ID, &a.CNPJ, &a.Endereco, &a.Bairro, &a.UserID, &a.CriadoEm, &a.AtualizadoEm,
		&u.ID, &u.Nome, &u.Email, &u.SenhaHash, &u.Ativo, &u.CriadoEm, &u.AtualizadoEm,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	a.User = &u
	return &a, nil
}
