package utils

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/BerniceZTT/followup_ledger/models"
)

// Logger 全局日志对象，初始化前丢弃输出
var Logger = zerolog.New(io.Discard)

const serviceName = "followup-ledger"

// maskedHeaders 请求日志里只保留前缀的请求头
var maskedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"X-Api-Key":     true,
}

// InitLogger 初始化日志系统，debug 时输出数据库操作
func InitLogger(debug bool) {
	Logger = NewLogger(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}, debug)
	Logger.Info().Bool("debug", debug).Msg("日志系统初始化完成")
}

// NewLogger 创建带服务名的日志记录器
func NewLogger(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(w).
		With().
		Timestamp().
		Str("service", serviceName).
		Caller().
		Logger().
		Level(level)
}

// ApiRequestLog 一次请求的日志字段
type ApiRequestLog struct {
	Method   string
	Route    string
	URL      string
	ClientID string
	Params   interface{}
	Body     string
	Headers  map[string]string
}

func (r ApiRequestLog) fields(e *zerolog.Event) *zerolog.Event {
	e = e.Str("method", r.Method).Str("url", r.URL)
	if r.Route != "" {
		e = e.Str("route", r.Route)
	}
	if r.ClientID != "" {
		e = e.Str("clientId", r.ClientID)
	}
	return e
}

// MaskHeaders 复制请求头并隐藏凭证
func MaskHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if maskedHeaders[http.CanonicalHeaderKey(k)] {
			if len(v) > 12 {
				v = v[:12] + "..."
			} else {
				v = "***"
			}
		}
		out[k] = v
	}
	return out
}

// LogApiRequest 记录API请求
func LogApiRequest(r ApiRequestLog) {
	r.fields(Logger.Info()).
		Interface("params", r.Params).
		Str("body", r.Body).
		Interface("headers", MaskHeaders(r.Headers)).
		Msg("API请求")
}

// LogApiResponse 记录API响应，时间线响应体积较大，只在失败时记录响应体
func LogApiResponse(r ApiRequestLog, statusCode int, elapsed time.Duration, body string) {
	var event *zerolog.Event
	switch {
	case statusCode >= http.StatusInternalServerError:
		event = Logger.Error().Str("body", body)
	case statusCode >= http.StatusBadRequest:
		event = Logger.Warn().Str("body", body)
	default:
		event = Logger.Info()
	}
	r.fields(event).
		Int("statusCode", statusCode).
		Dur("elapsed", elapsed).
		Msg("API响应")
}

// LogInfo 记录
func LogInfo(context map[string]interface{}, message string) {
	Logger.Info().
		Interface("context", context).
		Msg(message)
}

// LogError 记录错误
func LogError(err error, context map[string]interface{}, message string) {
	Logger.Error().
		Err(err).
		Interface("context", context).
		Msg(message)
}

// LogLedgerCommit 记录一次成功的时间线提交
func LogLedgerCommit(client *models.Client, appended []*models.Interaction) {
	types := make([]string, 0, len(appended))
	var first, last int64
	for i, e := range appended {
		types = append(types, string(e.Type))
		if i == 0 {
			first = e.Seq
		}
		last = e.Seq
	}
	Logger.Info().
		Str("clientId", client.ID).
		Int64("version", client.Version).
		Int64("firstSeq", first).
		Int64("lastSeq", last).
		Strs("types", types).
		Str("followUpState", string(client.FollowUpState)).
		Str("status", string(client.Status)).
		Msg("时间线已提交")
}

// LogLedgerRejected 记录被拒绝的时间线提交，code 为返回给调用方的错误码
func LogLedgerRejected(clientID string, expectedVersion int64, code string, err error) {
	Logger.Warn().
		Err(err).
		Str("clientId", clientID).
		Int64("expectedVersion", expectedVersion).
		Str("code", code).
		Msg("时间线提交被拒绝")
}

// LogDbOperation 记录数据库操作
func LogDbOperation(operation string, collection string, query interface{}, result interface{}) {
	Logger.Debug().
		Str("operation", operation).
		Str("collection", collection).
		Interface("query", query).
		Interface("result", result).
		Msg("数据库操作")
}

// LogLiveFollowUpMismatch 未替换的跟进预约数量与预期不符
func LogLiveFollowUpMismatch(operation string, clientID string, expected, actual int) {
	Logger.Warn().
		Str("operation", operation).
		Str("clientId", clientID).
		Int("expectedLive", expected).
		Int("actualLive", actual).
		Msg("跟进预约数量不一致")
}
