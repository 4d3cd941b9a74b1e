package auth

import "testing"

func TestHashVerify(t *testing.T) {
	hash, err := Hash("senha-secreta")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "senha-secreta" {
		t.Fatal("hash não pode ser a senha em texto puro")
	}

	ok, err := Verify("senha-secreta", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("senha correta deveria verificar contra o próprio hash")
	}
}

func TestVerifySenhaIncorreta(t *testing.T) {
	hash, err := Hash("senha-secreta")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := Verify("outra-senha", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("senha incorreta não pode verificar")
	}
}

func TestVerifySenhaGerada(t *testing.T) {
	senha, err := GerarSenha(5)
	if err != nil {
		t.Fatalf("GerarSenha: %v", err)
	}

	hash, err := Hash(senha)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := Verify(senha, hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("senha gerada deveria verificar após o hash do provisionamento")
	}
}
