package domain

import "time"

// Guest is created per admission request; repeat guests are not merged.
type Guest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	IDProof   string    `json:"id_proof,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedOn time.Time `json:"created_on"`
}
