package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// 存储驱动
const (
	StoreDriverMongo  = "mongo"
	StoreDriverMemory = "memory"
)

// Config 应用配置
type Config struct {
	Port             int
	MongoURI         string
	MongoDB          string
	JWTKey           string
	Debug            bool
	StoreDriver      string
	AMQPURL          string
	AMQPExchange     string
	OverdueSweepSpec string
	CORSOrigins      []string
}

// LoadConfig 从环境变量加载配置，存在 .env 时先加载
func LoadConfig() *Config {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil || port <= 0 {
		port = 8080
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreDriverMongo))
	if driver != StoreDriverMemory {
		driver = StoreDriverMongo
	}

	return &Config{
		Port:             port,
		MongoURI:         getEnv("MONGO_URI", "mongodb://127.0.0.1:27017/?replicaSet=rs0"),
		MongoDB:          getEnv("MONGO_DB", "crm"),
		JWTKey:           getEnv("JWT_KEY", "your-secret-key"), // 实际环境应替换为身份服务的签名密钥
		Debug:            getEnv("GIN_MODE", "debug") == "debug",
		StoreDriver:      driver,
		AMQPURL:          getEnv("AMQP_URL", ""),
		AMQPExchange:     getEnv("AMQP_EXCHANGE", "crm.ledger"),
		OverdueSweepSpec: getEnv("OVERDUE_SWEEP_SPEC", "@every 15m"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// splitList 拆分逗号分隔的配置项
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
