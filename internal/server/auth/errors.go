package auth

import (
	"fmt"

	"github.com/dmitrijs2005/lostfound/internal/common"
)

// Verification failures. All of them match common.ErrInvalidToken.
var (
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", common.ErrInvalidToken)
	ErrAudienceMismatch = fmt.Errorf("%w: audience mismatch", common.ErrInvalidToken)
	ErrExpired          = fmt.Errorf("%w: expired", common.ErrInvalidToken)
	ErrMalformed        = fmt.Errorf("%w: malformed", common.ErrInvalidToken)
)
