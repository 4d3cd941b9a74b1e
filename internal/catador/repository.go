package catador

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coopcata/plataforma/internal/associacao"
	"github.com/coopcata/plataforma/internal/lookup"
	"github.com/coopcata/plataforma/internal/user"
)

const dbTimeout = 3 * time.Second

const catadorColumns = `
        c.id, c.cpf, c.endereco, c.bairro, c.user_id, c.associacao_id, c.criado_em, c.atualizado_em,
        u.id, u.nome, u.email, u.senha_hash, u.ativo, u.criado_em, u.atualizado_em,
        a.id, a.cnpj, a.endereco, a.bairro, a.user_id, a.criado_em, a.atualizado_em,
        e.id, e.nome,
        g.id, g.nome
`

const catadorJoins = `
        FROM catadores c
        JOIN usuarios u ON u.id = c.user_id
        JOIN associacoes a ON a.id = c.associacao_id
        LEFT JOIN etnias e ON e.id = c.etnia_id
        LEFT JOIN generos g ON g.id = c.genero_id
`

// Repository fornece acesso ao armazenamento de catadores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de catadores.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List devolve todos os catadores com conta, associação e referências.
func (r *Repository) List(ctx context.Context) ([]Catador, error) {
	const query = `
        SELECT ` + catadorColumns + catadorJoins + `
        ORDER BY c.criado_em DESC
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var catadores []Catador
	for rows.Next() {
		c, err := scanCatador(rows)
		if err != nil {
			return nil, err
		}
		catadores = append(catadores, *c)
	}
	return catadores, rows.Err()
}

// GetByID busca catador pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Catador, error) {
	const query = `
        SELECT ` + catadorColumns + catadorJoins + `
        WHERE c.id = $1
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return scanCatador(r.pool.QueryRow(ctx, query, id))
}

// ListResumoByAssociacao lista os catadores da associação na projeção
// resumida, sem repetir a associação em cada item.
func (r *Repository) ListResumoByAssociacao(ctx context.Context, associacaoID uuid.UUID) ([]associacao.CatadorResumo, error) {
	const query = `
        SELECT c.id, c.cpf, c.endereco, c.bairro,
               u.id, u.nome, u.email, u.senha_hash, u.ativo, u.criado_em, u.atualizado_em,
               e.id, e.nome,
               g.id, g.nome
        FROM catadores c
        JOIN usuarios u ON u.id = c.user_id
        LEFT JOIN etnias e ON e.id = c.etnia_id
        LEFT JOIN generos g ON g.id = c.genero_id
        WHERE c.associacao_id = $1
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, query, associacaoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resumos []associacao.CatadorResumo
	for rows.Next() {
		var (
			resumo     associacao.CatadorResumo
			u          user.Usuario
			etniaID    *uuid.UUID
			etniaNome  *string
			generoID   *uuid.UUID
			generoNome *string
		)
		err := rows.Scan(
			&resumo.ID, &resumo.CPF, &resumo.Endereco, &resumo.Bairro,
			&u.ID, &u.Nome, &u.Email, &u.SenhaHash, &u.Ativo, &u.CriadoEm, &u.AtualizadoEm,
			&etniaID, &etniaNome,
			&generoID, &generoNome,
		)
		if err != nil {
			return nil, err
		}

		resumo.User = &u
		if etniaID != nil && etniaNome != nil {
			resumo.Etnia = &lookup.Etnia{ID: *etniaID, Nome: *etniaNome}
		}
		if generoID != nil && generoNome != nil {
			resumo.Genero = &lookup.Genero{ID: *generoID, Nome: *generoNome}
		}
		resumos = append(resumos, resumo)
	}
	return resumos, rows.Err()
}

// ExistsByCpf devolve ErrCpfEmUso quando o CPF já está cadastrado.
// A verificação é consultiva: o backstop real é a unique constraint.
func (r *Repository) ExistsByCpf(ctx context.Context, cpf string) error {
	const query = `SELECT 1 FROM catadores WHERE cpf = $1`

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var one int
	err := r.pool.QueryRow(ctx, query, strings.TrimSpace(cpf)).Scan(&one)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	return ErrCpfEmUso
}

// CreateTx insere o catador dentro da transação do provisionamento.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, input CreateRecord) (*Catador, error) {
	const query = `
        INSERT INTO catadores (user_id, associacao_id, cpf, endereco, bairro, etnia_id, genero_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, cpf, endereco, bairro, user_id, associacao_id, criado_em, atualizado_em
    `

	var c Catador
	row := tx.QueryRow(ctx, query,
		input.UserID,
		input.AssociacaoID,
		strings.TrimSpace(input.CPF),
		strings.TrimSpace(input.Endereco),
		strings.TrimSpace(input.Bairro),
		input.EtniaID,
		input.GeneroID,
	)
	if err := row.Scan(&c.ID, &c.CPF, &c.Endereco, &c.Bairro, &c.UserID, &c.AssociacaoID, &c.CriadoEm, &c.AtualizadoEm); err != nil {
		return nil, err
	}
	return &c, nil
}

// Update aplica alteração parcial e devolve a linha com os vínculos.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, input UpdateRecord) (*Catador, error) {
	const query = `
        UPDATE catadores
        SET cpf = COALESCE(NULLIF($2, ''), cpf),
            endereco = COALESCE(NULLIF($3, ''), endereco),
            bairro = COALESCE(NULLIF($4, ''), bairro),
            associacao_id = COALESCE($5, associacao_id),
            etnia_id = COALESCE($6, etnia_id),
            genero_id = COALESCE($7, genero_id),
            atualizado_em = now()
        WHERE id = $1
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, query, id,
		strings.TrimSpace(input.CPF),
		strings.TrimSpace(input.Endereco),
		strings.TrimSpace(input.Bairro),
		input.AssociacaoID,
		input.EtniaID,
		input.GeneroID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// DeleteTx remove o catador dentro da transação do cascade.
func (r *Repository) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM catadores WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCatador(row pgx.Row) (*Catador, error) {
	var (
		c          Catador
		u          user.Usuario
		a          associacao.Associacao
		etniaID    *uuid.UUID
		etniaNome  *string
		generoID   *uuid.UUID
		generoNome *string
	)

	err := row.Scan(
		&c.ID, &c.CPF, &c.Endereco, &c.Bairro, &c.UserID, &c.AssociacaoID, &c.CriadoEm, &c.AtualizadoEm,
		&u.ID, &u.Nome, &u.Email, &u.SenhaHash, &u.Ativo, &u.CriadoEm, &u.AtualizadoEm,
		&a.ID, &a.CNPJ, &a.Endereco, &a.Bairro, &a.UserID, &a.CriadoEm, &a.AtualizadoEm,
		&etniaID, &etniaNome,
		&generoID, &generoNome,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	c.User = &u
	c.Associacao = &a
	if etniaID != nil && etniaNome != nil {
		c.Etnia = &lookup.Etnia{ID: *etniaID, Nome: *etniaNome}
	}
	if generoID != nil && generoNome != nil {
		c.Genero = &lookup.Genero{ID: *generoID, Nome: *generoNome}
	}
	return &c, nil
}
