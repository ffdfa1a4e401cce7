package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Reader는 읽기 전용 체인 호출 인터페이스입니다
type Reader interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Backend는 트랜잭션 제출까지 포함한 체인 인터페이스입니다
// *ethclient.Client가 이 인터페이스를 만족합니다
type Backend interface {
	Reader
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Dial은 RPC 엔드포인트에 연결합니다
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("RPC 연결 실패: %w", err)
	}
	return client, nil
}

// Call은 하나의 컨트랙트 호출입니다
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Bundle은 배치 라우터를 통해 실행되는 호출 묶음입니다
type Bundle struct {
	Approvals    []Call
	Calls        []Call
	TokensReturn []common.Address
}

// Empty는 실행할 호출이 없는지 확인합니다
func (b Bundle) Empty() bool {
	return len(b.Calls) == 0
}

// batchCall은 execute의 tuple 인자에 대응합니다
type batchCall struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// EncodeBatch는 번들을 배치 라우터 execute 호출로 인코딩합니다
func EncodeBatch(router common.Address, b Bundle) (Call, error) {
	calls := make([]batchCall, len(b.Calls))
	total := new(big.Int)
	for i, c := range b.Calls {
		value := c.Value
		if value == nil {
			value = new(big.Int)
		}
		calls[i] = batchCall{To: c.To, Value: value, Data: c.Data}
		total.Add(total, value)
	}
	tokens := b.TokensReturn
	if tokens == nil {
		tokens = []common.Address{}
	}
	data, err := BatchRouterABI.Pack("execute", calls, tokens)
	if err != nil {
		return Call{}, fmt.Errorf("execute 인코딩 실패: %w", err)
	}
	return Call{To: router, Data: data, Value: total}, nil
}

// AgentAddress는 배치 라우터가 계정을 대신해 사용하는 에이전트 주소를 조회합니다
func AgentAddress(ctx context.Context, r Reader, router, account common.Address) (common.Address, error) {
	out, err := CallView(ctx, r, router, BatchRouterABI, "getAgentAddress", account)
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// CallView는 view 함수를 호출하고 결과를 디코딩합니다
func CallView(ctx context.Context, r Reader, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s 인코딩 실패: %w", method, err)
	}
	raw, err := r.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s 호출 실패 (%s): %w", method, to.Hex(), err)
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("%s 디코딩 실패 (%s): %w", method, to.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s 결과가 비어 있습니다 (%s)", method, to.Hex())
	}
	return out, nil
}
