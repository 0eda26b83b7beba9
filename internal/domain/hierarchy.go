package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// HierarchyGroupRef — ссылка на группу внутри пути иерархии.
type HierarchyGroupRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HierarchyPath — путь от корня иерархии до группы, максимум пять уровней.
type HierarchyPath struct {
	LevelOne   *HierarchyGroupRef `json:"levelOne,omitempty"`
	LevelTwo   *HierarchyGroupRef `json:"levelTwo,omitempty"`
	LevelThree *HierarchyGroupRef `json:"levelThree,omitempty"`
	LevelFour  *HierarchyGroupRef `json:"levelFour,omitempty"`
	LevelFive  *HierarchyGroupRef `json:"levelFive,omitempty"`
}

// Level возвращает элемент пути по номеру уровня ("1".."5").
func (p HierarchyPath) Level(levelID string) *HierarchyGroupRef {
	switch levelID {
	case "1":
		return p.LevelOne
	case "2":
		return p.LevelTwo
	case "3":
		return p.LevelThree
	case "4":
		return p.LevelFour
	case "5":
		return p.LevelFive
	}
	return nil
}

// HierarchyGroup — снимок позиции оператора в организационной иерархии.
// Снимается при старте записи и при авторизации просмотра, живое дерево
// при каждом запросе не обходится.
type HierarchyGroup struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	LevelID string        `json:"levelId"`
	Path    HierarchyPath `json:"path"`
}

func (g HierarchyGroup) Value() (driver.Value, error) {
	return json.Marshal(g)
}

func (g *HierarchyGroup) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported hierarchy snapshot type %T", src)
	}
	return json.Unmarshal(data, g)
}

// InHierarchy проверяет доступ запрашивающего оператора к записи.
// Два уровня проверки: точное совпадение группы, либо совпадение элемента
// пути записи на уровне запрашивающего (руководитель над подчиненными).
func InHierarchy(recordingGroupID string, recordingSnapshot *HierarchyGroup, operatorGroupID string, operatorSnapshot *HierarchyGroup) bool {
	if recordingGroupID != "" && recordingGroupID == operatorGroupID {
		return true
	}

	if recordingSnapshot == nil || operatorSnapshot == nil {
		return false
	}

	entry := recordingSnapshot.Path.Level(operatorSnapshot.LevelID)
	if entry != nil && entry.ID == operatorGroupID {
		return true
	}

	return false
}
