package pdcpsec

// Engine is the full security capability a PDCP entity holds: integrity
// protection and ciphering across the whole closed set of algorithm
// identifiers. It carries no mutable state and may be shared freely across
// bearers and goroutines, per the concurrency model's "security engine is
// stateless" design note.
type Engine struct {
	integrity [4]IntegrityEngine
	cipher    [4]CipherEngine
}

// NewEngine builds the default Engine wiring every algorithm identifier to
// its implementation: EIA0/EEA0 are the null algorithms, EIA2/EEA2 are
// AES-CMAC/AES-CTR, and EIA1/EIA3/EEA1/EEA3 fail closed with
// ErrUnsupportedAlgorithm.
func NewEngine() *Engine {
	return &Engine{
		integrity: [4]IntegrityEngine{
			EIA0: NullIntegrity{},
			EIA1: UnsupportedIntegrity{Algo: EIA1},
			EIA2: AESIntegrity{},
			EIA3: UnsupportedIntegrity{Algo: EIA3},
		},
		cipher: [4]CipherEngine{
			EEA0: NullCipher{},
			EEA1: UnsupportedCipher{Algo: EEA1},
			EEA2: AESCipher{},
			EEA3: UnsupportedCipher{Algo: EEA3},
		},
	}
}

// Integrity returns the IntegrityEngine for the given algorithm identifier.
func (e *Engine) Integrity(algo IntegrityAlgorithm) IntegrityEngine {
	if int(algo) < 0 || int(algo) >= len(e.integrity) {
		return UnsupportedIntegrity{Algo: algo}
	}
	return e.integrity[algo]
}

// Cipher returns the CipherEngine for the given algorithm identifier.
func (e *Engine) Cipher(algo CipherAlgorithm) CipherEngine {
	if int(algo) < 0 || int(algo) >= len(e.cipher) {
		return UnsupportedCipher{Algo: algo}
	}
	return e.cipher[algo]
}
