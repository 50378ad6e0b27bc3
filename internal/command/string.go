package command

import (
	"strings"

	"nessdb/internal/logger"
	"nessdb/internal/resp"

	"go.uber.org/zap"
)

func serverErr(op string, key []byte, err error) resp.Reply {
	logger.Warn("[command] storage error", zap.String("op", op), zap.ByteString("key", key), zap.Error(err))
	return resp.MakeServerErrReply(err)
}

func execPing(_ *Dispatcher, _ [][]byte) resp.Reply {
	return resp.PongReply
}

func execSet(d *Dispatcher, args [][]byte) resp.Reply {
	if err := d.store.Put(args[0], args[1]); err != nil {
		return serverErr("put", args[0], err)
	}
	return resp.MakeOkReply()
}

// execMSet 按顺序写入，出错时已写入的保持不变
func execMSet(d *Dispatcher, args [][]byte) resp.Reply {
	for i := 0; i+1 < len(args); i += 2 {
		if err := d.store.Put(args[i], args[i+1]); err != nil {
			return serverErr("put", args[i], err)
		}
	}
	return resp.MakeOkReply()
}

func execGet(d *Dispatcher, args [][]byte) resp.Reply {
	val, found, err := d.store.Get(args[0])
	if err != nil {
		return serverErr("get", args[0], err)
	}
	if !found {
		return resp.MakeNullBulkReply()
	}
	return resp.MakeBulkReply(val)
}

func execMGet(d *Dispatcher, args [][]byte) resp.Reply {
	result := make([][]byte, len(args))
	for i, key := range args {
		val, found, err := d.store.Get(key)
		if err != nil {
			return serverErr("get", key, err)
		}
		if found {
			result[i] = val
		}
	}
	return resp.MakeMultiBulkReply(result)
}

func execDel(d *Dispatcher, args [][]byte) resp.Reply {
	for _, key := range args {
		if err := d.store.Remove(key); err != nil {
			return serverErr("remove", key, err)
		}
	}
	return resp.MakeOkReply()
}

func execExists(d *Dispatcher, args [][]byte) resp.Reply {
	ok, err := d.store.Exists(args[0])
	if err != nil {
		return serverErr("exists", args[0], err)
	}
	return resp.MakeBoolReply(ok)
}

func execInfo(d *Dispatcher, _ [][]byte) resp.Reply {
	var b strings.Builder
	if d.serverInfo != nil {
		b.WriteString("# Server\r\n")
		b.WriteString(d.serverInfo())
		b.WriteString("\r\n")
	}
	b.WriteString("# Storage\r\n")
	b.WriteString(d.store.Stats())
	return resp.MakeBulkReply([]byte(b.String()))
}
