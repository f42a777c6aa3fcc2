package logging

import (
	"log/slog"
	"time"
)

// Field names shared by the pipeline, loader and API logs.
const (
	FieldRunID   = "run_id"
	FieldStage   = "stage"
	FieldStart   = "window_start"
	FieldEnd     = "window_end"
	FieldCount   = "count"
	FieldError   = "error"
	FieldDriver  = "driver"
	FieldPath    = "path"
	FieldInsight = "insight"
)

const dateLayout = "2006-01-02"

func RunID(id string) slog.Attr {
	return slog.String(FieldRunID, id)
}

func Stage(name string) slog.Attr {
	return slog.String(FieldStage, name)
}

// Window returns the bounds of a fetch window as a group of dates.
func Window(start, end time.Time) slog.Attr {
	return slog.Group("window",
		slog.String(FieldStart, start.Format(dateLayout)),
		slog.String(FieldEnd, end.Format(dateLayout)),
	)
}

func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

func Driver(name string) slog.Attr {
	return slog.String(FieldDriver, name)
}

func Path(p string) slog.Attr {
	return slog.String(FieldPath, p)
}

func Insight(name string) slog.Attr {
	return slog.String(FieldInsight, name)
}
