package emoji

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrNoGlyph 表示字形目录中没有对应的图片。
var ErrNoGlyph = errors.New("emoji: 缺少字形图片")

const defaultPrefetchLimit = 4

// Resolver 从文件系统加载 emoji 字形图片并缓存解码结果，可并发使用。
type Resolver struct {
	fsys fs.FS

	mu    sync.Mutex
	limit int
	cache map[string]image.Image // nil 值表示已确认缺失
}

// NewResolver 以 fsys 根目录下的 twemoji 风格 PNG 文件作为字形来源。
func NewResolver(fsys fs.FS) *Resolver {
	return &Resolver{fsys: fsys, limit: defaultPrefetchLimit, cache: map[string]image.Image{}}
}

// SetLimit 设置 Prefetch 的最大并发解码数，n <= 0 时恢复默认值。
func (r *Resolver) SetLimit(n int) {
	if n <= 0 {
		n = defaultPrefetchLimit
	}
	r.mu.Lock()
	r.limit = n
	r.mu.Unlock()
}

// Glyph 返回 key 对应的字形图片。找不到时返回包装了 ErrNoGlyph 的错误。
func (r *Resolver) Glyph(key string) (image.Image, error) {
	if r == nil || r.fsys == nil {
		return nil, fmt.Errorf("%w: %q（未配置字形目录）", ErrNoGlyph, key)
	}
	r.mu.Lock()
	img, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		if img == nil {
			return nil, fmt.Errorf("%w: %q", ErrNoGlyph, key)
		}
		return img, nil
	}

	img, err := r.load(key)
	if err != nil && !errors.Is(err, ErrNoGlyph) {
		return nil, err
	}
	r.mu.Lock()
	r.cache[key] = img
	r.mu.Unlock()
	return img, err
}

// Prefetch 并发解码 keys 对应的字形。缺失的字形不算错误，解码失败会中止并返回第一个错误。
func (r *Resolver) Prefetch(ctx context.Context, keys []string) error {
	r.mu.Lock()
	limit := r.limit
	r.mu.Unlock()

	seen := make(map[string]bool, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, key := range keys {
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := r.Glyph(key); err != nil && !errors.Is(err, ErrNoGlyph) {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Resolver) load(key string) (image.Image, error) {
	for _, name := range candidates(key) {
		f, err := r.fsys.Open(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("打开字形 %s 失败: %w", name, err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("解码字形 %s 失败: %w", name, err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoGlyph, key)
}
