package store

import (
	"time"

	"github.com/example/slick-storefront/internal/domain/catalog"
)

func price(v int64) *int64 { return &v }

// SeedProducts is the demo catalog loaded by the memory backend. The first
// three are flagged trending.
func SeedProducts() []catalog.Product {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []catalog.Product{
		{
			ID:          "HP9426",
			Name:        "Breaknet 2.0 Schuh",
			Price:       1999000,
			OldPrice:    price(2499000),
			Category:    "Unisex",
			Gender:      "U",
			BestForWear: "City",
			Image:       "https://assets.adidas.com/images/w_600,f_auto,q_auto/2474f3034df146b58c89af2c0011f75c_9366/Breaknet_2.0_Schuh_Weiss_HP9426_01_standard.jpg",
			Description: "Breaknet 2.0 là đôi giày phong cách tennis cổ điển, phù hợp đi phố với phối màu Cloud White / Core Black.",
			IsNew:       true,
			IsTrending:  true,
			Sizes:       []string{"38", "39", "40", "41", "42", "43"},
			Colors:      []string{"Cloud White", "Core Black"},
			CreatedAt:   created,
		},
		{
			ID:          "HQ4199",
			Name:        "Ultraboost 1.0 Laufschuh",
			Price:       4599000,
			OldPrice:    price(5299000),
			Category:    "Unisex",
			Gender:      "U",
			BestForWear: "City",
			Image:       "https://assets.adidas.com/images/w_600,f_auto,q_auto/4ff790231b7f461baee3c291e96b74af_9366/Ultraboost_1.0_Laufschuh_Schwarz_HQ4199_HM1.jpg",
			Description: "Ultraboost 1.0 mang lại cảm giác êm ái tối đa với đế Boost, lý tưởng cho chạy bộ và sử dụng hằng ngày.",
			IsNew:       true,
			IsTrending:  true,
			Sizes:       []string{"39", "40", "41", "42", "43", "44"},
			Colors:      []string{"Core Black", "Beam Green"},
			CreatedAt:   created,
		},
		{
			ID:          "IH5467",
			Name:        "Breaknet Sleek Schuh",
			Price:       1899000,
			OldPrice:    price(2299000),
			Category:    "Nữ",
			Gender:      "W",
			BestForWear: "Neutral",
			Image:       "https://assets.adidas.com/images/w_600,f_auto,q_auto/9403730c077b4221b51acf25fd197359_9366/Breaknet_Sleek_Schuh_Blau_IH5467_01_standard.jpg",
			Description: "Breaknet Sleek là phiên bản nữ tính với dáng thấp gọn gàng, phối màu Shadow Navy / Pink Spark.",
			IsNew:       true,
			IsTrending:  true,
			Sizes:       []string{"35", "36", "37", "38", "39", "40"},
			Colors:      []string{"Shadow Navy", "Pink Spark", "Off White"},
			CreatedAt:   created,
		},
		{
			ID:          "IG7323",
			Name:        "Racer TR23 Schuh",
			Price:       2199000,
			OldPrice:    price(2699000),
			Category:    "Nam",
			Gender:      "M",
			BestForWear: "Neutral",
			Image:       "https://assets.adidas.com/images/w_600,f_auto,q_auto/595712d9ae664c7497e1324fd35b607e_9366/Racer_TR23_Schuh_Schwarz_IG7323_01_standard.jpg",
			Description: "Racer TR23 là đôi giày lifestyle lấy cảm hứng từ running, tông đen Core Black dễ phối đồ.",
			IsNew:       true,
			Sizes:       []string{"40", "41", "42", "43", "44", "45"},
			Colors:      []string{"Core Black", "Cloud White", "Grey Four"},
			CreatedAt:   created,
		},
		{
			ID:          "IE8593",
			Name:        "Runfalcon 5 Kids Schuh",
			Price:       1299000,
			OldPrice:    price(1699000),
			Category:    "Trẻ em",
			Gender:      "K",
			BestForWear: "Neutral",
			Image:       "https://assets.adidas.com/images/w_600,f_auto,q_auto/8d36c7c56ce54e84a8c678351175da6c_9366/Runfalcon_5_Kids_Schuh_Weiss_IE8593_01_standard.jpg",
			Description: "Runfalcon 5 Kids là đôi giày chạy bộ cho trẻ em với phần upper Cloud White nhẹ và bền.",
			IsNew:       true,
			Sizes:       []string{"30", "31", "32", "33", "34", "35"},
			Colors:      []string{"Cloud White", "Core Black"},
			CreatedAt:   created,
		},
	}
}

func SeedTestimonials() []catalog.TestimonialRecord {
	avatar := func(img string) *string {
		s := "https://i.pravatar.cc/48?img=" + img
		return &s
	}
	return []catalog.TestimonialRecord{
		{
			ID:     "1",
			Name:   "Nguyễn Văn An",
			Text:   "Chất lượng giày tuyệt vời! Rất thoải mái và thời trang. Giao hàng nhanh và đóng gói cẩn thận. Rất khuyên dùng cửa hàng này.",
			Avatar: avatar("1"),
		},
		{
			ID:     "2",
			Name:   "Trần Thị Bình",
			Text:   "Giày chất lượng xuất sắc! Rất thoải mái và đẹp. Giao hàng nhanh và đóng gói tuyệt vời. Rất khuyên dùng cửa hàng này.",
			Avatar: avatar("5"),
		},
		{
			ID:     "3",
			Name:   "Lê Minh Cường",
			Text:   "Trải nghiệm mua giày tốt nhất từ trước đến nay. Đa dạng sản phẩm, giá cả hợp lý và dịch vụ khách hàng tuyệt vời. Chắc chắn sẽ mua lại!",
			Avatar: avatar("12"),
		},
	}
}
