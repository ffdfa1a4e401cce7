package journal

import (
	"time"
)

// Record는 한 리밸런싱 사이클의 기록입니다
type Record struct {
	CycleID         string           `json:"cycleId"`
	Timestamp       time.Time        `json:"timestamp"`
	State           string           `json:"state"`
	Signal          string           `json:"signal"`
	Crossed         bool             `json:"crossed"`
	AISignal        string           `json:"aiSignal"`
	SelectedWeights string           `json:"selectedWeights"`
	Weights         map[string]int64 `json:"weights"`
	TotalValue      string           `json:"totalValue"`
	Instructions    []Instruction    `json:"instructions"`
}

// Instruction은 사이클 안에서 처리된 지시 하나의 결과입니다
type Instruction struct {
	Token      string `json:"token"`
	Op         string `json:"op"`
	CurrentBps int64  `json:"currentBps,omitempty"`
	TargetBps  int64  `json:"targetBps,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Status     string `json:"status"`
	Route      string `json:"route,omitempty"`
	TxHash     string `json:"txHash,omitempty"`
	Error      string `json:"error,omitempty"`
}
