package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup은 전역 로거를 설정합니다. format이 "text"이면 콘솔 출력, 아니면 JSON입니다
func Setup(level, format string) {
	setup(os.Stdout, level, format)
}

func setup(out io.Writer, level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "text" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "2006-01-02 15:04:05"}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", "rebalancer").Logger()
}

// For는 component 필드가 붙은 하위 로거를 반환합니다
func For(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}
