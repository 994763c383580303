package api

// FolderRequest представляет тело запроса на создание или переименование папки
type FolderRequest struct {
	Name string `json:"name"`
}

// ClearResponse представляет ответ на очистку истории буфера обмена
type ClearResponse struct {
	Removed int `json:"removed"` // количество удаленных записей
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status   string `json:"status"`
	Storage  string `json:"storage"`
	Version  string `json:"version,omitempty"`
	Sessions int    `json:"sessions"`
}
