package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Identifier names a long lived engine object in log output.
type Identifier struct {
	Name string
	ID   uuid.UUID
}

func NewIdentifier(name string) Identifier {
	return Identifier{Name: name, ID: uuid.New()}
}

func (i Identifier) String() string {
	if i.Name == "" {
		return i.ID.String()
	}
	return fmt.Sprintf("%s(%s)", i.Name, i.ID.String()[:8])
}
