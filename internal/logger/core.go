package logger

import (
	"go.uber.org/zap/zapcore"
)

// DBCore tees entries at or above minLevel into a DBLogWriter and passes
// everything on to the wrapped core.
type DBCore struct {
	zapcore.Core
	writer   *DBLogWriter
	minLevel zapcore.Level
	fields   []zapcore.Field
}

func NewDBCore(baseCore zapcore.Core, writer *DBLogWriter, minLevel zapcore.Level) zapcore.Core {
	return &DBCore{
		Core:     baseCore,
		writer:   writer,
		minLevel: minLevel,
	}
}

// With keeps the tee when child loggers are derived.
func (c *DBCore) With(fields []zapcore.Field) zapcore.Core {
	return &DBCore{
		Core:     c.Core.With(fields),
		writer:   c.writer,
		minLevel: c.minLevel,
		fields:   append(append([]zapcore.Field{}, c.fields...), fields...),
	}
}

func (c *DBCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if entry.Level >= c.minLevel {
		e := LogEntry{
			Level:   entry.Level,
			Message: entry.Message,
			Caller:  entry.Caller.Function,
		}
		for _, group := range [][]zapcore.Field{c.fields, fields} {
			for _, f := range group {
				if f.Type != zapcore.StringType {
					continue
				}
				switch f.Key {
				case "ip":
					e.IpAddress = f.String
				case "org_id":
					e.OrgID = f.String
				case "report_id":
					e.ReportID = f.String
				}
			}
		}
		c.writer.AddLog(e)
	}
	return c.Core.Write(entry, fields)
}

func (c *DBCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
