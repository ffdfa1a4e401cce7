package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

type fakeKey struct {
	to       common.Address
	selector string
}

// fakeReader는 (컨트랙트, selector) 별로 고정된 응답을 돌려줍니다
type fakeReader struct {
	responses map[fakeKey][]byte
	native    *big.Int
	calls     int
	err       error // 설정되면 모든 호출이 이 에러로 실패합니다
}

func newFakeReader() *fakeReader {
	return &fakeReader{responses: make(map[fakeKey][]byte), native: new(big.Int)}
}

func (f *fakeReader) set(t *testing.T, to common.Address, contract abi.ABI, method string, values ...interface{}) {
	t.Helper()
	m := contract.Methods[method]
	out, err := m.Outputs.Pack(values...)
	require.NoError(t, err)
	f.responses[fakeKey{to, string(m.ID)}] = out
}

func (f *fakeReader) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out, ok := f.responses[fakeKey{*msg.To, string(msg.Data[:4])}]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (f *fakeReader) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.native, nil
}
