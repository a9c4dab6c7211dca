package prover

import "time"

// 证明后端默认配置值
const (
	// BackendGroth16 内置 gnark Groth16 参考电路
	BackendGroth16 = "groth16"
	// BackendNoir 外部 nargo + bb 工具链
	BackendNoir = "noir"

	defaultBackend             = BackendGroth16
	defaultWorkDir             = "./data/prover"
	defaultNargoPath           = "nargo"
	defaultBBPath              = "bb"
	defaultInitiatorCircuitDir = "./circuits/circuit_alice"
	defaultResponderCircuitDir = "./circuits/circuit_bob"

	// defaultTimeout 深度 20 的 UltraHonk 证明在笔记本上约需数十秒
	defaultTimeout = 5 * time.Minute
)
