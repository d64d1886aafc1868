package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"backend/internal/workflow"

	"gopkg.in/yaml.v3"
)

// StageSpec 模板中的单个阶段定义
type StageSpec struct {
	Order int    `yaml:"order" json:"order"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// Template 工作流阶段模板，用于一键创建常见审批流
type Template struct {
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description"`
	Category    string      `yaml:"category" json:"category"`
	Stages      []StageSpec `yaml:"stages" json:"stages"`
}

// StageList 将模板阶段转换为工作流阶段列表
func (t *Template) StageList() workflow.StageList {
	stages := make(workflow.StageList, 0, len(t.Stages))
	for _, s := range t.Stages {
		stages = append(stages, workflow.WorkflowStage{
			Order: s.Order,
			Name:  s.Name,
			Color: workflow.StageColor(s.Color),
		})
	}
	return stages
}

// TemplateConfig 模板配置文件
type TemplateConfig struct {
	Templates map[string]*Template `yaml:"templates"`
}

// TemplateLoader 模板加载器
type TemplateLoader struct {
	templates map[string]*Template
	mu        sync.RWMutex
}

// NewTemplateLoader 创建模板加载器
func NewTemplateLoader() *TemplateLoader {
	return &TemplateLoader{
		templates: make(map[string]*Template),
	}
}

// LoadFromFile 从文件加载模板
func (l *TemplateLoader) LoadFromFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("读取模板配置文件失败: %w", err)
	}

	var config TemplateConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("解析模板配置失败: %w", err)
	}

	// 模板阶段同样要满足阶段校验规则
	for key, template := range config.Templates {
		if err := workflow.ValidateStages(template.StageList()); err != nil {
			return fmt.Errorf("模板 %s 阶段定义无效: %w", key, err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, template := range config.Templates {
		l.templates[key] = template
	}

	return nil
}

// LoadFromDirectory 从目录加载所有模板文件
func (l *TemplateLoader) LoadFromDirectory(dirPath string) error {
	files, err := filepath.Glob(filepath.Join(dirPath, "*.yaml"))
	if err != nil {
		return fmt.Errorf("遍历模板目录失败: %w", err)
	}

	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			// 记录错误但继续加载其他文件
			continue
		}
	}

	return nil
}

// GetTemplate 获取模板
func (l *TemplateLoader) GetTemplate(key string) (*Template, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	template, ok := l.templates[key]
	if !ok {
		return nil, fmt.Errorf("模板不存在: %s", key)
	}

	return template, nil
}

// ListTemplates 列出所有模板
func (l *TemplateLoader) ListTemplates() map[string]*Template {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make(map[string]*Template, len(l.templates))
	for k, v := range l.templates {
		result[k] = v
	}

	return result
}

// ListByCategory 按类别列出模板
func (l *TemplateLoader) ListByCategory(category string) []*Template {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*Template
	for _, template := range l.templates {
		if template.Category == category {
			result = append(result, template)
		}
	}

	return result
}
