package fonts_test

import (
	"io"
	"log"
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }
