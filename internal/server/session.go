package server

import (
	"bytes"
	"errors"
	"net"

	"nessdb/internal/command"
	"nessdb/internal/resp"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 空闲时超过这个容量的缓冲区会被释放
const maxIdleBuffer = 1 << 20

// session 是单个连接的状态，只在事件循环 goroutine 中访问
type session struct {
	id     uuid.UUID
	remote string
	buf    bytes.Buffer
	dec    resp.Decoder
	closed bool
}

func newSession(remote net.Addr) *session {
	sess := &session{id: uuid.New()}
	if remote != nil {
		sess.remote = remote.String()
	}
	return sess
}

// feed 追加本次读到的字节并执行所有完整的请求，按请求顺序拼接回复。
// 不完整的尾部留到下一次可读事件。closeConn 为 true 时回复写出后关闭连接。
func (s *Server) feed(sess *session, data []byte) (out []byte, closeConn bool) {
	sess.buf.Write(data)

	for sess.buf.Len() > 0 {
		args, n, err := sess.dec.Decode(sess.buf.Bytes())
		if errors.Is(err, resp.ErrIncomplete) {
			if uint64(sess.buf.Len()) > s.cfg.MaxRequestSize.Uint64() {
				s.metrics.ProtocolError()
				s.log.Warn("[server] request too large, closing connection",
					zap.String("session", sess.id.String()),
					zap.Int("buffered", sess.buf.Len()))
				out = append(out, resp.MakeProtocolErrReply(errors.New("request too large")).ToBytes()...)
				sess.buf.Reset()
				sess.dec.Reset()
				return out, true
			}
			break
		}
		if err != nil {
			// 格式错误后无法找到下一个请求的边界，丢弃已缓冲的字节
			s.metrics.ProtocolError()
			s.log.Debug("[server] protocol error",
				zap.String("session", sess.id.String()),
				zap.Error(err))
			out = append(out, resp.MakeProtocolErrReply(err).ToBytes()...)
			sess.buf.Reset()
			break
		}

		sess.buf.Next(n)
		if len(args) == 0 {
			continue
		}

		req := command.NewRequest(args)
		reply := s.dispatcher.Exec(req)
		s.metrics.ObserveCommand(req.Kind.String(), !resp.IsErrorReply(reply))
		out = append(out, reply.ToBytes()...)
	}

	if sess.buf.Len() == 0 && sess.buf.Cap() > maxIdleBuffer {
		sess.buf = bytes.Buffer{}
	}
	return out, false
}
