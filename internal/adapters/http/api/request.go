package api

import (
	"fmt"
	"strings"

	"github.com/okian/neurolens/internal/domain/model"
)

// Upper bound on the screening age range, in months.
const maxAgeMonths = 216

// createRequest is the body of POST /sessions.
type createRequest struct {
	model.SessionRequest
}

func (c createRequest) validate() error {
	switch {
	case strings.TrimSpace(c.ChildName) == "":
		return fmt.Errorf("%w: missing childName", ErrBadRequest)
	case c.AgeMonths < 0 || c.AgeMonths > maxAgeMonths:
		return fmt.Errorf("%w: ageMonths must be within 0..%d", ErrBadRequest, maxAgeMonths)
	}
	return nil
}
