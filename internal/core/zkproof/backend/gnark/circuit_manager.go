package gnark

import (
	"fmt"
	"io"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/ztomic/v1/pkg/interfaces/infrastructure/log"
	"github.com/ztomic/v1/pkg/types"
)

// CircuitManager 电路与可信设置缓存
//
// 按 (角色, 深度) 编译一次电路并执行一次 Setup，之后的证明复用同一组密钥。
// 本地 Setup 只适用于开发与测试，生产 verifier 的密钥来自外部仪式。
type CircuitManager struct {
	logger log.Logger

	setupCache map[string]*trustedSetupEntry
	setupMutex sync.Mutex
}

type trustedSetupEntry struct {
	compiled     constraint.ConstraintSystem
	provingKey   groth16.ProvingKey
	verifyingKey groth16.VerifyingKey
}

// NewCircuitManager 创建电路管理器
func NewCircuitManager(logger log.Logger) *CircuitManager {
	return &CircuitManager{
		logger:     logger,
		setupCache: make(map[string]*trustedSetupEntry),
	}
}

// NewCircuit 按角色与深度创建电路定义
func NewCircuit(role types.Role, depth int) (frontend.Circuit, error) {
	switch role {
	case types.RoleInitiator:
		return NewInitiatorCircuit(depth)
	case types.RoleResponder:
		return NewResponderCircuit(depth)
	default:
		return nil, fmt.Errorf("unsupported circuit role: %s", role)
	}
}

// GetTrustedSetup 返回编译电路、ProvingKey、VerifyingKey
//
// 整个过程持锁，同一电路的并发请求只做一次 Setup。
func (cm *CircuitManager) GetTrustedSetup(role types.Role, depth int) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey, error) {
	cacheKey := fmt.Sprintf("%s.d%d:%s", role, depth, ecc.BN254.String())

	cm.setupMutex.Lock()
	defer cm.setupMutex.Unlock()

	if entry, exists := cm.setupCache[cacheKey]; exists {
		return entry.compiled, entry.provingKey, entry.verifyingKey, nil
	}

	circuit, err := NewCircuit(role, depth)
	if err != nil {
		return nil, nil, nil, err
	}

	compiled, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %s: %v", ErrCircuitCompilationFailed, cacheKey, err)
	}

	provingKey, verifyingKey, err := groth16.Setup(compiled)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("groth16 setup %s: %w", cacheKey, err)
	}

	cm.setupCache[cacheKey] = &trustedSetupEntry{
		compiled:     compiled,
		provingKey:   provingKey,
		verifyingKey: verifyingKey,
	}
	if cm.logger != nil {
		cm.logger.Infof("电路可信设置完成: %s constraints=%d", cacheKey, compiled.GetNbConstraints())
	}

	return compiled, provingKey, verifyingKey, nil
}

// ExportSolidityVerifier 导出 verifier 合约源码
func (cm *CircuitManager) ExportSolidityVerifier(role types.Role, depth int, w io.Writer) error {
	_, _, vk, err := cm.GetTrustedSetup(role, depth)
	if err != nil {
		return err
	}
	return vk.ExportSolidity(w)
}
