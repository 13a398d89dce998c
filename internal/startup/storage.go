package startup

import (
	"fmt"
	"os"

	"github.com/barbershop/internal/chat"
)

// EnsureStorageDir создаёт каталог журналов и проверяет запись пробным файлом.
// Ошибка — chat.CodeStorageUnavailable: сервис без каталога не стартует.
func EnsureStorageDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return chat.NewError(chat.CodeStorageUnavailable, fmt.Sprintf("create %s", dir), err)
	}
	f, err := os.CreateTemp(dir, ".writecheck-*")
	if err != nil {
		return chat.NewError(chat.CodeStorageUnavailable, fmt.Sprintf("%s is not writable", dir), err)
	}
	name := f.Name()
	_, werr := f.Write([]byte("ok"))
	cerr := f.Close()
	os.Remove(name)
	if werr != nil {
		return chat.NewError(chat.CodeStorageUnavailable, fmt.Sprintf("write check in %s", dir), werr)
	}
	if cerr != nil {
		return chat.NewError(chat.CodeStorageUnavailable, fmt.Sprintf("close check file in %s", dir), cerr)
	}
	return nil
}
