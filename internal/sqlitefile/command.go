package sqlitefile

type CommandKind int

const (
	DBInfo CommandKind = iota + 1
	ListTables
	CountTableRows
)

func (k CommandKind) String() string {
	switch k {
	case DBInfo:
		return "dbinfo"
	case ListTables:
		return "tables"
	case CountTableRows:
		return "count"
	default:
		return "unknown"
	}
}

// Command is a resolved user command. TableName is set for CountTableRows.
type Command struct {
	Kind      CommandKind
	TableName string
}
