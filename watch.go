package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ByLCY/inkcard/templates"
)

// watchDebounce 合并编辑器保存文件时连续触发的事件。
const watchDebounce = 200 * time.Millisecond

// watchAndRun 监听输入 DSL 与数据文件所在目录，相关文件变化后重新执行 rebuild。
// 收到中断信号时返回。
func watchAndRun(cfg config, rebuild func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	targets := map[string]bool{}
	for _, p := range []string{cfg.input, cfg.dataFile} {
		if p == "" || templates.IsBuiltin(p) {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = true
	}
	if len(targets) == 0 {
		log.Printf("没有可监听的文件（内置模板不支持 -watch），退出")
		return nil
	}
	// 监听目录而不是文件：编辑器常以重命名方式保存。
	dirs := map[string]bool{}
	for p := range targets {
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return err
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	log.Printf("正在监听 %d 个文件，Ctrl+C 退出", len(targets))
	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("监听出错: %v", err)
		case <-pending:
			pending = nil
			if err := rebuild(); err != nil {
				log.Printf("生成失败: %v", err)
			}
		case <-interrupt:
			return nil
		}
	}
}
