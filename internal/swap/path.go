package swap

import (
	"github.com/assist-by/equilibria/internal/domain"
)

// EncodePath는 경로를 tokenIn(20) fee(3) tokenOut(20) ... 형식으로 인코딩합니다
func EncodePath(route domain.Route) []byte {
	if len(route.Hops) == 0 {
		return nil
	}
	path := make([]byte, 0, 20+len(route.Hops)*23)
	path = append(path, route.Hops[0].TokenIn.Bytes()...)
	for _, hop := range route.Hops {
		path = append(path, byte(hop.Fee>>16), byte(hop.Fee>>8), byte(hop.Fee))
		path = append(path, hop.TokenOut.Bytes()...)
	}
	return path
}
