package interfaces

// Session is the per-visitor key/value store provided by the hosting web
// layer. Credentials and the active language are kept here.
type Session interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
}
