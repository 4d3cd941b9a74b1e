package catador

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coopcata/plataforma/internal/associacao"
)

func novoRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r)
	return r
}

type envelope struct {
	Data  map[string]json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode resposta %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestProvisionamentoCatadorViaHTTP(t *testing.T) {
	a := associacaoExistente()
	store := newStubStore()
	contas := newStubContas()
	contas.roleIDs = []uuid.UUID{uuid.New()}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{a.ID: a}}

	router := novoRouter(novoServico(store, contas, &stubRoles{}, assoc, nil))

	rec, env := doJSON(t, router, http.MethodPost, "/catadores", pedidoValido(a.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("esperado 201, obtido %d: %s", rec.Code, rec.Body.String())
	}

	var senhaGerada string
	if err := json.Unmarshal(env.Data["senha_gerada"], &senhaGerada); err != nil {
		t.Fatalf("senha_gerada ausente na resposta: %v", err)
	}
	if len(senhaGerada) != 5 {
		t.Fatalf("senha gerada deveria ter 5 caracteres, obtido %q", senhaGerada)
	}

	var c Catador
	if err := json.Unmarshal(env.Data["catador"], &c); err != nil {
		t.Fatalf("catador ausente na resposta: %v", err)
	}
	if c.CPF != "111.111.111-11" {
		t.Fatalf("cpf incorreto na resposta: %q", c.CPF)
	}
	if c.User == nil || c.User.Email != "jose@exemplo.com" {
		t.Fatal("resposta deveria incluir a conta vinculada")
	}
	if c.Associacao == nil || c.Associacao.ID != a.ID {
		t.Fatal("resposta deveria incluir a associação vinculada")
	}

	// Segunda tentativa com o mesmo CPF deve falhar com conflito.
	rec, env = doJSON(t, router, http.MethodPost, "/catadores", pedidoValido(a.ID))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("esperado 400 para CPF duplicado, obtido %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Fatalf("esperado código CONFLICT, obtido %+v", env.Error)
	}
}

func TestCreateAssociacaoInexistenteViaHTTP(t *testing.T) {
	store := newStubStore()
	contas := newStubContas()
	contas.roleIDs = []uuid.UUID{uuid.New()}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{}}

	router := novoRouter(novoServico(store, contas, &stubRoles{}, assoc, nil))

	rec, env := doJSON(t, router, http.MethodPost, "/catadores", pedidoValido(uuid.New()))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("esperado 404 para associação inexistente, obtido %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("esperado código NOT_FOUND, obtido %+v", env.Error)
	}
	if contas.criado != nil || store.criado != nil {
		t.Fatal("associação inexistente não pode deixar conta nem catador para trás")
	}
}

func TestCreateCatadorPayloadInvalido(t *testing.T) {
	a := associacaoExistente()
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{a.ID: a}}
	router := novoRouter(novoServico(newStubStore(), newStubContas(), &stubRoles{}, assoc, nil))

	// Sem associacao_id o pedido não chega ao serviço.
	pedido := pedidoValido(a.ID)
	pedido.AssociacaoID = uuid.Nil

	rec, env := doJSON(t, router, http.MethodPost, "/catadores", pedido)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("esperado 400, obtido %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "VALIDATION" {
		t.Fatalf("esperado código VALIDATION, obtido %+v", env.Error)
	}

	pedido = pedidoValido(a.ID)
	pedido.User.Email = "sem-arroba"

	rec, env = doJSON(t, router, http.MethodPost, "/catadores", pedido)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("esperado 400, obtido %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "VALIDATION" {
		t.Fatalf("esperado código VALIDATION, obtido %+v", env.Error)
	}
}

func TestGetCatadorInexistente(t *testing.T) {
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{}}
	router := novoRouter(novoServico(newStubStore(), newStubContas(), &stubRoles{}, assoc, nil))

	rec, env := doJSON(t, router, http.MethodGet, "/catadores/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("esperado 404, obtido %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("esperado código NOT_FOUND, obtido %+v", env.Error)
	}
}

func TestUpdateCatadorViaHTTP(t *testing.T) {
	a := associacaoExistente()
	store := newStubStore()
	contas := newStubContas()
	contas.roleIDs = []uuid.UUID{uuid.New()}
	assoc := &stubAssociacoes{porID: map[uuid.UUID]*associacao.Associacao{a.ID: a}}

	router := novoRouter(novoServico(store, contas, &stubRoles{}, assoc, nil))

	rec, env := doJSON(t, router, http.MethodPost, "/catadores", pedidoValido(a.ID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("esperado 201, obtido %d", rec.Code)
	}
	var criado Catador
	if err := json.Unmarshal(env.Data["catador"], &criado); err != nil {
		t.Fatalf("catador ausente: %v", err)
	}

	payload := map[string]any{
		"bairro": "Vila Nova",
		"user":   map[string]any{"nome": "José Atualizado"},
	}
	rec, env = doJSON(t, router, http.MethodPut, "/catadores/"+criado.ID.String(), payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("esperado 200, obtido %d: %s", rec.Code, rec.Body.String())
	}

	var atualizado Catador
	if err := json.Unmarshal(env.Data["catador"], &atualizado); err != nil {
		t.Fatalf("catador ausente: %v", err)
	}
	if atualizado.Bairro != "Vila Nova" {
		t.Fatalf("bairro não aplicado: %q", atualizado.Bairro)
	}

	if len(contas.updates) != 1 || contas.updates[0].Nome != "José Atualizado" {
		t.Fatalf("campos de conta do payload deveriam chegar à atualização, obtido %+v", contas.updates)
	}
}
