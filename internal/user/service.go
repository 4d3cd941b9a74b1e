package user

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coopcata/plataforma/internal/auth"
	"github.com/coopcata/plataforma/internal/util"
)

// UpdateConta descreve alteração parcial vinda do fluxo de atualização
// das entidades de domínio. Senha em texto puro é hasheada aqui.
type UpdateConta struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Senha string `json:"senha,omitempty"`
}

// Service centraliza as regras de conta: validação de e-mail e hashing
// de senha ficam deste lado, nunca nos fluxos de provisionamento.
type Service struct {
	repo *Repository
}

// NewService cria uma nova instância de Service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// RoleIDsByName resolve identificadores de roles pelos nomes.
func (s *Service) RoleIDsByName(ctx context.Context, names []string) ([]uuid.UUID, error) {
	return s.repo.RoleIDsByName(ctx, names)
}

// EmailDisponivel falha com ErrEmailEmUso quando o e-mail já existe.
func (s *Service) EmailDisponivel(ctx context.Context, email string) error {
	return s.repo.EmailDisponivel(ctx, email)
}

// CreateTx valida, hasheia a senha e insere a conta na transação corrente.
func (s *Service) CreateTx(ctx context.Context, tx pgx.Tx, nome, email, senha string) (*Usuario, error) {
	if err := util.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := util.RequireString(senha, "senha"); err != nil {
		return nil, err
	}

	hash, err := auth.Hash(senha)
	if err != nil {
		return nil, err
	}

	return s.repo.CreateTx(ctx, tx, CreateInput{
		Nome:      strings.TrimSpace(nome),
		Email:     email,
		SenhaHash: hash,
		Ativo:     true,
	})
}

// AddRolesTx vincula roles à conta na transação corrente.
func (s *Service) AddRolesTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, roleIDs []uuid.UUID) error {
	return s.repo.AddRolesTx(ctx, tx, userID, roleIDs)
}

// Update aplica alteração parcial; senha nova é hasheada antes de persistir.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateConta) error {
	if strings.TrimSpace(input.Email) != "" {
		if err := util.ValidateEmail(input.Email); err != nil {
			return err
		}
	}

	var hash string
	if strings.TrimSpace(input.Senha) != "" {
		h, err := auth.Hash(input.Senha)
		if err != nil {
			return err
		}
		hash = h
	}

	return s.repo.Update(ctx, id, UpdateInput{
		Nome:      input.Nome,
		Email:     input.Email,
		SenhaHash: hash,
	})
}

// SetAtivo liga/desliga a conta.
func (s *Service) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	return s.repo.SetAtivo(ctx, id, ativo)
}

// DeleteTx remove a conta dentro da transação do cascade.
func (s *Service) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	return s.repo.DeleteTx(ctx, tx, id)
}
