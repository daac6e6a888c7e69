package configuration

type Configuration struct {
	HttpAddr          string `usage:"HTTP address"`
	HttpsEnabled      bool   `usage:"serve HTTPS, requires a certificate"`
	HttpsSelfsigned   bool   `usage:"use a self signed certificate for HTTPS"`
	Dir               string `usage:"data directory, one .ndmf file per map"`
	BlockSize         int    `usage:"block size in bytes for new and existing maps"`
	NameSize          int    `usage:"max entry name length in bytes"`
	IndexSegmentSize  int    `usage:"max index segment size in bytes"`
	Compression       string `usage:"compression for new records: none, deflate, zstd, s2"`
	ApiKey            string `usage:"API key, empty disables authentication"`
	ApiSecret         string `usage:"API secret"`
	EnableCompression bool   `usage:"gzip HTTP responses"`
	LogLevel          string `usage:"log level: debug, info, warn, error"`
	Version           bool   `usage:"show version and exit"`
	ShowBanner        bool   `usage:"show big banner"`
	ShowConfig        bool   `usage:"print config"`
}
