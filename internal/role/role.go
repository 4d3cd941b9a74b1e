package role

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

// Role é a definição de um grupo de permissões.
type Role struct {
	ID        uuid.UUID `json:"id"`
	Nome      string    `json:"nome"`
	Descricao string    `json:"descricao"`
	Ativa     bool      `json:"ativa"`
	CriadoEm  time.Time `json:"criado_em"`
}

// CreateInput contém os campos persistidos na criação de role.
type CreateInput struct {
	Nome      string
	Descricao string
	Ativa     bool
}

// Repository fornece acesso ao armazenamento de roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de roles.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create insere uma nova role e devolve a linha persistida.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Role, error) {
	const query = `
        INSERT INTO roles (nome, descricao, ativa)
        VALUES ($1, $2, $3)
        RETURNING id, nome, descricao, ativa, criado_em
    `

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var role Role
	row := r.pool.QueryRow(ctx, query,
		strings.TrimSpace(strings.ToLower(input.Nome)),
		strings.TrimSpace(input.Descricao),
		input.Ativa,
	)
	if err := row.Scan(&role.ID, &role.Nome, &role.Descricao, &role.Ativa, &role.CriadoEm); err != nil {
		return nil, err
	}
	return &role, nil
}

// Service expõe o caso de uso de criação de role para os fluxos de
// provisionamento.
type Service struct {
	repo *Repository
}

// NewService cria uma nova instância de Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create registra a role com os dados informados.
func (s *Service) Create(ctx context.Context, nome, descricao string, ativa bool) (*Role, error) {
	return s.repo.Create(ctx, CreateInput{Nome: nome, Descricao: descricao, Ativa: ativa})
}
