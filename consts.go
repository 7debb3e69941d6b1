package chuusen

import "time"

const (
	// DistinguishedID is the participant id reserved for "you"
	DistinguishedID = -1

	// DefaultBinCount is the number of histogram bins used for winner and applicant distributions
	DefaultBinCount = 50

	// DefaultLowerSpread is the number of standard deviations below the mean where binning starts
	DefaultLowerSpread = 3.0

	// DefaultUpperSpread is the number of standard deviations above the mean where binning ends
	DefaultUpperSpread = 2.0

	// DefaultProgressWeight is the share of reported progress covered by the trial phase
	DefaultProgressWeight = 0.9

	// DefaultMaxSimulations is the upper bound accepted for NumSimulations
	DefaultMaxSimulations = 100000

	// MaxProgress is the highest progress value ever reported
	MaxProgress = 100

	// AttemptCapFactor bounds sampling attempts per (trial, channel) to AttemptCapFactor * len(pool)
	AttemptCapFactor = 2

	// DefaultCurvePoints is the number of points produced by LogNormalCurve
	DefaultCurvePoints = 100

	// DefaultFastRandomGeneratorCacheSize is the float cache size of the secure random source
	DefaultFastRandomGeneratorCacheSize = 1024
)

// Default simulation input, matching the form defaults users start from.
const (
	DefaultTotalBallots        = 1000000
	DefaultNumWinners          = 100
	DefaultAvgBallotsPerPerson = 10.0
	DefaultStdDev              = 1.5
	DefaultNumChannels         = 1
	DefaultNumSimulations      = 10000
	DefaultYourBallots         = 1
)

const (
	// RandomSourceFast selects the PCG-backed source
	RandomSourceFast = "fast"

	// RandomSourceSecure selects the crypto/rand backed cached source
	RandomSourceSecure = "secure"
)

const (
	// DefaultRetryAttempts is the default number of retry attempts
	DefaultRetryAttempts = 3

	// DefaultRetryInterval is the default interval between retry attempts
	DefaultRetryInterval = 100 * time.Millisecond

	// MaxRetryAttempts is the maximum number of retry attempts allowed
	MaxRetryAttempts = 10

	// InputKeyPrefix is the prefix for persisted simulation inputs
	InputKeyPrefix = "chuusen:input:"

	// DefaultInputKey is the fixed name the last used input is stored under
	DefaultInputKey = "lotterySimulatorInputs"

	// ResultKeyPrefix is the prefix for archived run records
	ResultKeyPrefix = "chuusen:run:"

	// LatestRunKey points at the id of the most recently archived run
	LatestRunKey = "chuusen:run-latest"

	// DefaultResultTTL is how long archived runs are kept
	DefaultResultTTL = 7 * 24 * time.Hour

	// LockKeyPrefix is the prefix for Redis run lock keys
	LockKeyPrefix = "chuusen:lock:"

	// DefaultRunLockKey is the lock key guarding runs when the run lock is enabled
	DefaultRunLockKey = "simulation"

	// DefaultLockExpiration is the default expiration time for run locks
	DefaultLockExpiration = 10 * time.Minute

	// MinLockExpiration is the minimum run lock expiration allowed
	MinLockExpiration = 1 * time.Second

	// MaxLockExpiration is the maximum run lock expiration allowed
	MaxLockExpiration = 2 * time.Hour
)

const (
	// DefaultCircuitBreakerName is the default name for Circuit Breaker
	DefaultCircuitBreakerName = "chuusen-store"

	// DefaultCircuitBreakerMaxRequests is the default max requests
	DefaultCircuitBreakerMaxRequests = 3

	// DefaultCircuitBreakerInterval is the default interval
	DefaultCircuitBreakerInterval = 60 * time.Second

	// DefaultCircuitBreakerTimeout is the default timeout
	DefaultCircuitBreakerTimeout = 30 * time.Second

	// DefaultCircuitBreakerFailureRatio is the default failure ratio
	DefaultCircuitBreakerFailureRatio = 0.6

	// DefaultCircuitBreakerMinRequests is the default min requests
	DefaultCircuitBreakerMinRequests = 3

	// DefaultCircuitBreakerOnStateChange is the default on state change
	DefaultCircuitBreakerOnStateChange = true
)

const (
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPassword     = ""
	DefaultRedisDB           = 0
	DefaultRedisPoolSize     = 10
	DefaultRedisMinIdleConns = 2
	DefaultRedisMaxRetries   = 3
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisPoolTimeout  = 4 * time.Second
)

const (
	DefaultLogLevel      = "info"
	DefaultLogFileName   = "chuusen.log"
	DefaultLogMaxSizeMB  = 16
	DefaultLogMaxBackups = 8
	DefaultLogMaxAgeDays = 90
)
