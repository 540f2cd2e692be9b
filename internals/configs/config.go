package configs

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

var (
	// Geofence kantor — pusat + radius meter (batas inklusif)
	OfficeLat       float64
	OfficeLng       float64
	GeofenceRadiusM float64

	// Umur maksimum sampel posisi device sebelum dianggap basi
	PositionTTL time.Duration

	// Batas shift maksimum sebelum sesi ditutup paksa sweeper
	MaxShift time.Duration

	// Periode ticker tampilan & sweeper
	SnapshotTick time.Duration
	SweepTick    time.Duration

	// Zona waktu untuk tanggal kalender sesi
	AppLocation *time.Location
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("⚠️ Tidak menemukan .env file, menggunakan ENV dari sistem")
		} else {
			log.Println("✅ .env file berhasil dimuat!")
		}
	} else {
		log.Println("🚀 Running in Railway, menggunakan ENV dari sistem")
	}

	OfficeLat = GetEnvFloat("OFFICE_LAT", -6.2000)
	OfficeLng = GetEnvFloat("OFFICE_LNG", 106.8166)
	GeofenceRadiusM = GetEnvFloat("GEOFENCE_RADIUS_M", 100)

	PositionTTL = GetEnvDuration("POSITION_TTL", 30*time.Second)
	MaxShift = GetEnvDuration("MAX_SHIFT", 14*time.Hour)
	SnapshotTick = GetEnvDuration("SNAPSHOT_TICK", 1*time.Second)
	SweepTick = GetEnvDuration("SWEEP_TICK", 1*time.Minute)

	if GeofenceRadiusM <= 0 {
		log.Println("❌ GEOFENCE_RADIUS_M harus > 0, pakai default 100m")
		GeofenceRadiusM = 100
	}

	tz := GetEnv("TIMEZONE", "Asia/Jakarta")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("⚠️ TIMEZONE=%q tidak dikenal, pakai UTC", tz)
		loc = time.UTC
	}
	AppLocation = loc
	log.Printf("✅ Geofence kantor: (%.6f, %.6f) radius %.0fm", OfficeLat, OfficeLng, GeofenceRadiusM)
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

func GetEnvFloat(key string, def float64) float64 {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("⚠️ %s=%q bukan angka, pakai default %v", key, raw, def)
		return def
	}
	return v
}

func GetEnvDuration(key string, def time.Duration) time.Duration {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("⚠️ %s=%q bukan durasi, pakai default %v", key, raw, def)
		return def
	}
	return v
}

// =======================
// GORM LOGGER CUSTOM
// =======================
type GormLogger struct {
	SlowThreshold time.Duration
	LogLevel      gormLogger.LogLevel
}

func NewGormLogger() gormLogger.Interface {
	return &GormLogger{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      gormLogger.Warn,
	}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	l.LogLevel = level
	return l
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	log.Printf("[INFO] "+msg, data...)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	log.Printf("[WARN] "+msg, data...)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	log.Printf("[ERROR] "+msg, data...)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	file := utils.FileWithLineNum()

	if err != nil {
		log.Printf("[ERROR] %s | %v | %s | %d rows | %s", file, err, elapsed, rows, sql)
	} else if elapsed > l.SlowThreshold {
		log.Printf("[SLOW SQL] %s | %s | %d rows | %s", file, elapsed, rows, sql)
	}
}
