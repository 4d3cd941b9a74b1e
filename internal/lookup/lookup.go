package lookup

import "github.com/google/uuid"

// Etnia e Genero são referências de cadastro exibidas nas leituras de
// catador. A manutenção dessas tabelas fica fora deste serviço.

type Etnia struct {
	ID   uuid.UUID `json:"id"`
	Nome string    `json:"nome"`
}

type Genero struct {
	ID   uuid.UUID `json:"id"`
	Nome string    `json:"nome"`
}
