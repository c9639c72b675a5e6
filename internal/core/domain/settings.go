package domain

import "time"

const (
	ParamTransactionTimeout     = "transactionTimeout"
	ParamFeeBasisPoints         = "feeBasisPoints"
	ParamHourlyTransactionLimit = "hourlyTransactionLimit"
	ParamRequiredConfirmations  = "requiredConfirmations"
	ParamChallengeThreshold     = "challengeThreshold"

	MaxFeeBasisPoints = 10000

	DefaultTransactionTimeout     = int64(7 * 24 * 60 * 60)
	DefaultFeeBasisPoints         = uint64(10)
	DefaultHourlyTransactionLimit = uint64(1000)
	DefaultRequiredConfirmations  = uint64(3)
	DefaultChallengeThreshold     = uint64(1000)
)

type Settings struct {
	// TransactionTimeout is expressed in seconds.
	TransactionTimeout     int64
	FeeBasisPoints         uint64
	HourlyTransactionLimit uint64
	RequiredConfirmations  uint64
	ChallengeThreshold     uint64
	FeeCollector           string
	Paused                 bool
	UpdatedAt              time.Time
}

func NewSettings(
	transactionTimeout int64,
	feeBasisPoints, hourlyTransactionLimit,
	requiredConfirmations, challengeThreshold uint64,
	feeCollector string,
) (*Settings, error) {
	s := &Settings{
		TransactionTimeout:     transactionTimeout,
		FeeBasisPoints:         feeBasisPoints,
		HourlyTransactionLimit: hourlyTransactionLimit,
		RequiredConfirmations:  requiredConfirmations,
		ChallengeThreshold:     challengeThreshold,
		FeeCollector:           feeCollector,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s Settings) Validate() error {
	if s.TransactionTimeout <= 0 {
		return ErrInvalidParameterValue
	}
	if s.FeeBasisPoints > MaxFeeBasisPoints {
		return ErrInvalidParameterValue
	}
	if s.HourlyTransactionLimit == 0 {
		return ErrInvalidParameterValue
	}
	if s.RequiredConfirmations < 1 {
		return ErrInvalidParameterValue
	}
	return nil
}

// SetParameter updates the named parameter in place.
// It returns ErrUnknownParameter for names not in the administrable set and
// ErrInvalidParameterValue when the resulting settings would be invalid, in
// which case the receiver is left untouched.
func (s *Settings) SetParameter(name string, value uint64) error {
	updated := *s
	switch name {
	case ParamTransactionTimeout:
		if value > uint64(1<<62) {
			return ErrInvalidParameterValue
		}
		updated.TransactionTimeout = int64(value)
	case ParamFeeBasisPoints:
		updated.FeeBasisPoints = value
	case ParamHourlyTransactionLimit:
		updated.HourlyTransactionLimit = value
	case ParamRequiredConfirmations:
		updated.RequiredConfirmations = value
	case ParamChallengeThreshold:
		updated.ChallengeThreshold = value
	default:
		return ErrUnknownParameter
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	*s = updated
	return nil
}

func (s Settings) Parameter(name string) (uint64, bool) {
	switch name {
	case ParamTransactionTimeout:
		return uint64(s.TransactionTimeout), true
	case ParamFeeBasisPoints:
		return s.FeeBasisPoints, true
	case ParamHourlyTransactionLimit:
		return s.HourlyTransactionLimit, true
	case ParamRequiredConfirmations:
		return s.RequiredConfirmations, true
	case ParamChallengeThreshold:
		return s.ChallengeThreshold, true
	default:
		return 0, false
	}
}
