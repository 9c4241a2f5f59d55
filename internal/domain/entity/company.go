package entity

import "time"

// Company representa una empresa cliente. Se crea una sola vez junto con su primer admin.
type Company struct {
	ID        string
	Name      string
	CNPJ      string // 14 caracteres normalizados (ver pkg/cnpj)
	CreatedAt time.Time
	UpdatedAt time.Time
}
