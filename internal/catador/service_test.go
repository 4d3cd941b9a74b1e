package catador

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coopcata/plataforma/internal/associacao"
	"github.com/coopcata/plataforma/internal/mail"
	"github.com/coopcata/plataforma/internal/role"
	"github.com/coopcata/plataforma/internal/user"
)

type stubStore struct {
	porID         map[uuid.UUID]*Catador
	cpfExistentes map[string]bool
	existsCalls   []string
	criado        *Catador
	deletados     []uuid.UUID
}

func newStubStore() *stubStore {
	return &stubStore{
		porID:         map[uuid.UUID]*Catador{},
		cpfExistentes: map[string]bool{},
	}
}

func (s *stubStore) List(ctx context.Context) ([]Catador, error) {
	var out []Catador
	for _, c := range s.porID {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (*Catador, error) {
	c, ok := s.porID[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *stubStore) ExistsByCpf(ctx context.Context, cpf string) error {
	s.existsCalls = append(s.existsCalls, cpf)
	if s.cpfExistentes[cpf] {
		return ErrCpfEmUso
	}
	return nil
}

func (s *stubStore) CreateTx(ctx context.Context, tx pgx.Tx, input CreateRecord) (*Catador, error) {
	c := &Catador{
		ID:           uuid.New(),
		CPF:          input.CPF,
		Endereco:     input.Endereco,
		Bairro:       input.Bairro,
		UserID:       input.UserID,
		AssociacaoID: input.AssociacaoID,
	}
	s.criado = c
	s.porID[c.ID] = c
	s.cpfExistentes[c.CPF] = true
	return c, nil
}

func (s *stubStore) Update(ctx context.Context, id uuid.UUID, input UpdateRecord) (*Catador, error) {
	c, ok := s.porID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if input.CPF != "" {
		c.CPF = input.CPF
	}
	if input.Bairro != "" {
		c.Bairro = input.Bairro
	}
	if input.Endereco != "" {
		c.Endereco = input.Endereco
	}
	if input.AssociacaoID != nil {
		c.AssociacaoID = *input.AssociacaoID
	}
	clone := *c
	return &clone, nil
}

func (s *stubStore) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	if _, ok := s.porID[id]; !ok {
		return ErrNotFound
	}
	s.deletados = append(s.deletados, id)
	delete(s.porID, id)
	return nil
}

type stubContas struct {
	roleIDs          []uuid.UUID
	roleErr          error
	emailsExistentes map[string]bool
	emailCalls       int
	criado           *user.Usuario
	senhaCriada      string
	rolesVinculadas  []uuid.UUID
	updates          []user.UpdateConta
	deletados        []uuid.UUID
}

func newStubContas() *stubContas {
	return &stubContas{emailsExistentes: map[string]bool{}}
}

func (s *stubContas) RoleIDsByName(ctx context.Context, names []string) ([]uuid.UUID, error) {
	if s.roleErr != nil {
		return nil, s.roleErr
	}
	return s.roleIDs, nil
}

func (s *stubContas) EmailDisponivel(ctx context.Context, email string) error {
	s.emailCalls++
	if s.emailsExistentes[email] {
		return user.ErrEmailEmUso
	}
	return nil
}

func (s *stubContas) CreateTx(ctx context.Context, tx pgx.Tx, nome, email, senha string) (*user.Usuario, error) {
	u := &user.Usuario{ID: uuid.New(), Nome: nome, Email: email, Ativo: true}
	s.criado = u
	s.senhaCriada = senha
	return u, nil
}

func (s *stubContas) AddRolesTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, roleIDs []uuid.UUID) error {
	s.rolesVinculadas = append(s.rolesVinculadas, roleIDs...)
	return nil
}

func (s *stubContas) Update(ctx context.Context, id uuid.UUID, input user.UpdateConta) error {
	s.updates = append(s.updates, input)
	return nil
}

func (s *stubContas) DeleteTx(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	s.deletados = append(s.deletados, id)
	return nil
}

type stubRoles struct {
	criadas []role.Role
}

func (s *stubRoles) Create(ctx context.Context, nome, descricao string, ativa bool) (*role.Role, error) {
	r := role.Role{ID: uuid.New(), Nome: nome, Descricao: descricao, Ativa: ativa}
	s.criadas = append(s.criadas, r)
	return &r, nil
}

type stubAssociacoes struct {
	porID map[uuid.UUID]*associacao.Associacao
}

func (s *stubAssociacoes) GetByID(ctx context.Context, id uuid.UUID) (*associacao.Associacao, error) {
	a, ok := s.porID[id]
	if !ok {
		return nil, associacao.ErrNotFound
	}
	return a, nil
}

type mensagem struct {
	to      string
	subject string
	body    string
}

type stubMailer struct {
	msgs chan mensagem
}

func newStubMailer() *stubMailer {
	return &stubMailer{msgs: make(chan mensagem, 1)}
}

func (m *stubMailer) Send(ctx context.Context, to, subject, body string) error {
	m.msgs <- mensagem{to: to, subject: subject, body: body}
	return nil
}

func noopTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return fn(ctx, nil)
}

func associacaoExistente() *associacao.Associacao {
	return &associacao.Associacao{
		ID:     uuid.New(),
		CNPJ:   "11.111.111/0001-11",
		Bairro: "Centro",
		UserID: uuid.New(),
	}
}

func pedidoValido(associacaoID uuid.UUID) NovoCatador {
	return NovoCatador{
		CPF:          "111.111.111-11",
		Endereco:     "Rua do Sol, 42",
		Bairro:       "Centro",
		AssociacaoID: associacaoID,
		User: user.NovaConta{
			Nome:  "José da Silva",
			Email: "jose@exemplo.com",
		},
	}
}

func novoServico(store *stubStore, contas *stubContas, roles *stubRoles, assoc *stubAssociacoes, mailer *stubMailer) *Service {
	// ponteiro nil embrulhado em interface deixaria s.mailer != nil.
	var m mail.Mailer
	if mailer != nil {
		m = mailer
	}
	return NewService(store, contas, roles, assoc, m, nil, noopTx, 5)
}

func TestCreateAssociacaoInexistente(t *testing.T) {
	store := newStubStore()
	contas := newStubContas()
	contas.roleIDs = []uuid.UUID{uuid.New()}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{}}

	svc := novoServico(store, contas, &stubRoles{}, assoc, nil)

	_, _, err := svc.Create(context.Background(), pedidoValido(uuid.New()))
	if !errors.Is(err, associacao.ErrNotFound) {
		t.Fatalf("esperado associacao.ErrNotFound, obtido %v", err)
	}
	if contas.criado != nil || store.criado != nil {
		t.Fatal("associação inexistente não pode deixar conta nem catador para trás")
	}
}

func TestCreateCpfDuplicado(t *testing.T) {
	a := associacaoExistente()
	store := newStubStore()
	store.cpfExistentes["111.111.111-11"] = true
	contas := newStubContas()
	contas.roleIDs = []uuid.UUID{uuid.New()}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{a.ID: a}}

	svc := novoServico(store, contas, &stubRoles{}, assoc, nil)

	_, _, err := svc.Create(context.Background(), pedidoValido(a.ID))
	if !errors.Is(err, ErrCpfEmUso) {
		t.Fatalf("esperado ErrCpfEmUso, obtido %v", err)
	}
	if contas.criado != nil || store.criado != nil {
		t.Fatal("conflito de CPF não pode deixar mutação para trás")
	}
}

func TestCreateCriaRoleCatadorQuandoAusente(t *testing.T) {
	a := associacaoExistente()
	store := newStubStore()
	contas := newStubContas()
	contas.roleErr = user.ErrRoleNaoEncontrada
	roles := &stubRoles{}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{a.ID: a}}

	svc := novoServico(store, contas, roles, assoc, nil)

	if _, _, err := svc.Create(context.Background(), pedidoValido(a.ID)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(roles.criadas) != 1 || roles.criadas[0].Nome != RoleCatador {
		t.Fatalf("esperada role %q criada, obtido %+v", RoleCatador, roles.criadas)
	}
}

func TestCreateVinculaContaAssociacaoERegistro(t *testing.T) {
	a := associacaoExistente()
	store := newStubStore()
	contas := newStubContas()
	contas.roleIDs = []uuid.UUID{uuid.New()}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{a.ID: a}}

	svc := novoServico(store, contas, &stubRoles{}, assoc, nil)

	c, _, err := svc.Create(context.Background(), pedidoValido(a.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if c.UserID != contas.criado.ID {
		t.Fatal("catador deveria referenciar a conta criada")
	}
	if c.AssociacaoID != a.ID {
		t.Fatal("catador deveria referenciar a associação validada")
	}
	if c.User == nil || c.Associacao == nil {
		t.Fatal("leitura do catador deveria incluir conta e associação")
	}
}

func TestCreateEnviaEmailComSenha(t *testing.T) {
	a := associacaoExistente()
	store := newStubStore()
	contas := newStubContas()
	contas.roleIDs = []uuid.UUID{uuid.New()}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{a.ID: a}}
	mailer := newStubMailer()

	svc := novoServico(store, contas, &stubRoles{}, assoc, mailer)

	_, senhaGerada, err := svc.Create(context.Background(), pedidoValido(a.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	select {
	case msg := <-mailer.msgs:
		if msg.to != "jose@exemplo.com" {
			t.Fatalf("destinatário incorreto: %q", msg.to)
		}
		if msg.subject != assuntoBoasVindas {
			t.Fatalf("assunto incorreto: %q", msg.subject)
		}
		if !strings.Contains(msg.body, senhaGerada) {
			t.Fatal("corpo do e-mail deveria conter a senha gerada")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("e-mail de boas-vindas não foi disparado")
	}
}

func TestUpdateValidaNovaAssociacao(t *testing.T) {
	a := associacaoExistente()
	store := newStubStore()
	contas := newStubContas()
	contas.roleIDs = []uuid.UUID{uuid.New()}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{a.ID: a}}

	svc := novoServico(store, contas, &stubRoles{}, assoc, nil)

	c, _, err := svc.Create(context.Background(), pedidoValido(a.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	inexistente := uuid.New()
	_, err = svc.Update(context.Background(), c.ID, AtualizaCatador{AssociacaoID: &inexistente})
	if !errors.Is(err, associacao.ErrNotFound) {
		t.Fatalf("associação nova inexistente deveria falhar, obtido %v", err)
	}
}

func TestUpdateNaoRechecaCpfInalterado(t *testing.T) {
	a := associacaoExistente()
	store := newStubStore()
	contas := newStubContas()
	contas.roleIDs = []uuid.UUID{uuid.New()}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{a.ID: a}}

	svc := novoServico(store, contas, &stubRoles{}, assoc, nil)

	c, _, err := svc.Create(context.Background(), pedidoValido(a.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	store.existsCalls = nil

	atualizado, err := svc.Update(context.Background(), c.ID, AtualizaCatador{
		CPF:    c.CPF,
		Bairro: "Vila Nova",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(store.existsCalls) != 0 {
		t.Fatal("CPF inalterado não deveria passar pela checagem de unicidade")
	}
	if atualizado.Bairro != "Vila Nova" {
		t.Fatalf("demais campos deveriam ser aplicados, obtido %q", atualizado.Bairro)
	}
}

func TestDeleteCascata(t *testing.T) {
	a := associacaoExistente()
	store := newStubStore()
	contas := newStubContas()
	contas.roleIDs = []uuid.UUID{uuid.New()}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{a.ID: a}}

	svc := novoServico(store, contas, &stubRoles{}, assoc, nil)

	c, _, err := svc.Create(context.Background(), pedidoValido(a.ID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if len(store.deletados) != 1 || store.deletados[0] != c.ID {
		t.Fatal("registro do catador deveria ser removido")
	}
	if len(contas.deletados) != 1 || contas.deletados[0] != c.UserID {
		t.Fatal("conta dona deveria ser removida após o registro")
	}
}

func TestDeleteInexistenteNaoMutaNada(t *testing.T) {
	svc := novoServico(newStubStore(), newStubContas(), &stubRoles{}, &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{}}, nil)

	if err := svc.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("esperado ErrNotFound, obtido %v", err)
	}
}
