package config

import "time"

// Default configuration values
const (
	DefaultHost                  = "0.0.0.0"
	DefaultPort                  = 8080
	DefaultCORSOrigins           = "*"
	DefaultDatabaseDriver        = "memory"
	DefaultDatabasePath          = "data/quantum_chat.db"
	DefaultQuantumBackend        = BackendSimulator
	DefaultQuantumShots          = 1
	DefaultQuantumNoise          = 0.0
	DefaultQuantumSeed           = 0
	DefaultMaxMessageLength      = 500
	DefaultClassiqBaseURL        = "https://platform.classiq.io/api/v1"
	DefaultQiskitBaseURL         = "https://api.quantum-computing.ibm.com"
	DefaultQiskitBackend         = "ibmq_qasm_simulator"
	DefaultQiskitMaxWait         = 5 * time.Minute
	DefaultLogLevel              = "info"
	DefaultLogFile               = "logs/quantum_messaging.log"
	DefaultAPIRateLimit          = 100
	DefaultPresenceIdleTimeout   = 5 * time.Minute
	DefaultPresenceSweepInterval = time.Minute
	DefaultShutdownTimeout       = 10 * time.Second
)

// Quantum backends
const (
	BackendSimulator = "simulator"
	BackendQiskit    = "qiskit"
)
