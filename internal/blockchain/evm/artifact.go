package evm

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/tidwall/gjson"
)

// ErrEmptyBytecode is returned for artifacts of interfaces and abstract contracts
var ErrEmptyBytecode = errors.New("artifact has no bytecode")

// Artifact is a compiled contract as written by hardhat or foundry
type Artifact struct {
	ContractName string
	ABI          string
	Bytecode     []byte
}

// HasMethod reports whether the artifact ABI declares method
func (a *Artifact) HasMethod(method string) (bool, error) {
	parsed, err := abi.JSON(strings.NewReader(a.ABI))
	if err != nil {
		return false, fmt.Errorf("invalid %s ABI: %w", a.ContractName, err)
	}
	_, ok := parsed.Methods[method]
	return ok, nil
}

// LoadArtifact reads and parses a compiled contract artifact
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	artifact, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return artifact, nil
}

// ParseArtifact extracts name, ABI and creation bytecode from artifact JSON.
// Hardhat stores bytecode as a string, foundry under bytecode.object.
func ParseArtifact(data []byte) (*Artifact, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid artifact JSON")
	}
	parsed := gjson.ParseBytes(data)

	bytecode := parsed.Get("bytecode")
	if bytecode.IsObject() {
		bytecode = bytecode.Get("object")
	}

	code := strings.TrimSpace(bytecode.String())
	if code == "" || code == "0x" {
		return nil, ErrEmptyBytecode
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	if strings.Contains(code, "__") {
		return nil, fmt.Errorf("bytecode has unlinked libraries")
	}

	raw, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("invalid bytecode: %w", err)
	}

	return &Artifact{
		ContractName: parsed.Get("contractName").String(),
		ABI:          parsed.Get("abi").Raw,
		Bytecode:     raw,
	}, nil
}
