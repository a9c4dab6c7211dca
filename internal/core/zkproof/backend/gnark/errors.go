package gnark

import "errors"

var (
	// ErrCircuitCompilationFailed 电路编译失败
	ErrCircuitCompilationFailed = errors.New("circuit compilation failed")

	// ErrProofVerificationFailed 本地验证未通过
	ErrProofVerificationFailed = errors.New("proof verification failed")

	// ErrUnsupportedHash 参考电路只支持 poseidon2
	ErrUnsupportedHash = errors.New("groth16 backend requires the poseidon2 hash")
)
