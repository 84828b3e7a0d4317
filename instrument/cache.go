package instrument

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store 把合约表按交易日缓存到磁盘。文件首行为日期，其后是 JSON 正文；
// 同一天内直接命中，跨天的缓存视为过期。
type Store struct {
	Dir string
}

const cacheFileName = "instruments.dat"

func (s *Store) path() string {
	return filepath.Join(s.Dir, cacheFileName)
}

// Load 读取 date 当天的缓存。缓存缺失或日期不符返回 ok=false。
func (s *Store) Load(date string) (map[string]Instrument, bool, error) {
	fd, err := os.Open(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open instrument cache: %w", err)
	}
	defer fd.Close()

	reader := bufio.NewReader(fd)
	header, err := reader.ReadString('\n')
	if err != nil {
		return nil, false, fmt.Errorf("read instrument cache header: %w", err)
	}
	if strings.TrimSuffix(header, "\n") != date {
		return nil, false, nil
	}
	var items map[string]Instrument
	if err := json.NewDecoder(reader).Decode(&items); err != nil {
		return nil, false, fmt.Errorf("decode instrument cache: %w", err)
	}
	return items, true, nil
}

// Save 覆盖写入 date 当天的合约表。
func (s *Store) Save(date string, items map[string]Instrument) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	fd, err := os.Create(s.path())
	if err != nil {
		return fmt.Errorf("create instrument cache: %w", err)
	}
	defer fd.Close()

	writer := bufio.NewWriter(fd)
	if _, err := writer.WriteString(date + "\n"); err != nil {
		return err
	}
	if err := json.NewEncoder(writer).Encode(items); err != nil {
		return fmt.Errorf("encode instrument cache: %w", err)
	}
	return writer.Flush()
}
