package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
    "strconv"  // strconv converts strings to other types
    "strings"  // strings normalizes boolean values
    "time"     // time parses duration values
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs.  Library policy values (loan period, late fee) are fixed here
// at startup so that callers of the API can never supply their own.
type Config struct {
    Env               string  // application environment (e.g. "dev", "prod")
    Port              string  // HTTP port to listen on
    DBUser            string  // database username
    DBPass            string  // database password (optional)
    DBHost            string  // database host address
    DBPort            string  // database port number
    DBName            string  // database name
    JWTSecret         string  // secret used to sign JWTs
    AccessTTLMin      int     // access token time-to-live in minutes
    BcryptCost        int     // bcrypt cost for password hashing
    LibraryName       string  // display name used in the info endpoint
    LoanPeriodDays    int     // fixed loan duration applied to every borrow
    MaxBooksPerMember int     // advertised borrow limit (informational)
    LateFeePerDay     float64 // advertised late fee (informational)
    AdminUsername     string  // optional bootstrap admin account
    AdminPassword     string  // optional bootstrap admin password
    AdminEmail        string  // optional bootstrap admin email
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Library policy
// variables default to sane values when unset.
func Load() Config {
    return Config{
        Env:               must("APP_ENV"),      // environment (dev/test/prod)
        Port:              must("APP_PORT"),     // port to bind the HTTP server
        DBUser:            must("DB_USER"),      // database user
        DBPass:            os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:            must("DB_HOST"),      // database host
        DBPort:            must("DB_PORT"),      // database port
        DBName:            must("DB_NAME"),      // database name
        JWTSecret:         must("JWT_SECRET"),   // secret used for signing JWTs
        AccessTTLMin:      mustInt("ACCESS_TOKEN_TTL_MIN"), // TTL for access tokens in minutes
        BcryptCost:        mustInt("BCRYPT_COST"),          // bcrypt cost factor
        LibraryName:       defaultStr("LIBRARY_NAME", "City Library"),
        LoanPeriodDays:    defaultInt("LOAN_PERIOD_DAYS", 14),
        MaxBooksPerMember: defaultInt("MAX_BOOKS_PER_MEMBER", 5),
        LateFeePerDay:     defaultFloat("LATE_FEE_PER_DAY", 0.5),
        AdminUsername:     os.Getenv("ADMIN_USERNAME"), // empty disables bootstrap
        AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
        AdminEmail:        os.Getenv("ADMIN_EMAIL"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// defaultStr returns the variable's value or a default when unset.
func defaultStr(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

// defaultInt returns the variable parsed as int, or a default when unset
// or invalid.
func defaultInt(key string, def int) int {
    if v := os.Getenv(key); v != "" {
        if n, err := strconv.Atoi(v); err == nil {
            return n
        }
    }
    return def
}

// defaultFloat returns the variable parsed as float64, or a default when
// unset or invalid.
func defaultFloat(key string, def float64) float64 {
    if v := os.Getenv(key); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil {
            return f
        }
    }
    return def
}

// defaultBool returns the variable parsed as a boolean, or a default
// when unset or unrecognized.
func defaultBool(key string, def bool) bool {
    switch strings.ToLower(os.Getenv(key)) {
    case "1", "true", "yes", "on":
        return true
    case "0", "false", "no", "off":
        return false
    }
    return def
}

// defaultDur returns the variable parsed as a duration, or a default
// when unset or invalid.
func defaultDur(key string, def time.Duration) time.Duration {
    if v := os.Getenv(key); v != "" {
        if d, err := time.ParseDuration(v); err == nil {
            return d
        }
    }
    return def
}
