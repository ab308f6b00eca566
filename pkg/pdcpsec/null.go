package pdcpsec

// NullIntegrity implements EIA0: the null integrity algorithm. Per 3GPP TS
// 33.401, EIA0 always produces a MAC-I of all zero bits; it exists so SRB1
// signalling can proceed before AS security is activated.
type NullIntegrity struct{}

func (NullIntegrity) Algorithm() IntegrityAlgorithm { return EIA0 }

func (NullIntegrity) ComputeMAC(IntegrityInput) ([MACLen]byte, error) {
	return [MACLen]byte{}, nil
}

// NullCipher implements EEA0: the null ciphering algorithm. It returns the
// payload unchanged.
type NullCipher struct{}

func (NullCipher) Algorithm() CipherAlgorithm { return EEA0 }

func (NullCipher) Cipher(in CipherInput) ([]byte, error) {
	out := make([]byte, len(in.Payload))
	copy(out, in.Payload)
	return out, nil
}
